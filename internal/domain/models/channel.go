package models

// Channel names used by the default demand table and allocation policy.
const (
	ChannelLocalMarkets = "local_markets"
	ChannelSupermarkets = "supermarkets"
	ChannelProcessors   = "processors"
	ChannelExporters    = "exporters"
)

// DemandChannel is a downstream buyer type with bounded absorption capacity.
type DemandChannel struct {
	Name                   string  `json:"name" bson:"name"`
	DemandKg               float64 `json:"demand_kg" bson:"demand_kg"`
	PricePerKg             float64 `json:"price_per_kg" bson:"price_per_kg"`
	Priority               string  `json:"priority" bson:"priority"`
	TransportationTimeDays int     `json:"transportation_time_days" bson:"transportation_time_days"`
}

// ChannelTable is an ordered set of demand channels.
type ChannelTable []DemandChannel

// DefaultChannelTable returns a fresh copy of the built-in demand snapshot (PHP prices).
func DefaultChannelTable() ChannelTable {
	return ChannelTable{
		{Name: ChannelLocalMarkets, DemandKg: 5000, PricePerKg: 55, Priority: "high", TransportationTimeDays: 1},
		{Name: ChannelSupermarkets, DemandKg: 3000, PricePerKg: 65, Priority: "medium", TransportationTimeDays: 1},
		{Name: ChannelProcessors, DemandKg: 2000, PricePerKg: 45, Priority: "low", TransportationTimeDays: 1},
		{Name: ChannelExporters, DemandKg: 8000, PricePerKg: 70, Priority: "medium", TransportationTimeDays: 2},
	}
}

// Lookup returns the channel with the given name.
func (t ChannelTable) Lookup(name string) (DemandChannel, bool) {
	for _, ch := range t {
		if ch.Name == name {
			return ch, true
		}
	}
	return DemandChannel{}, false
}

// Clone returns an independent copy of the table.
func (t ChannelTable) Clone() ChannelTable {
	if t == nil {
		return nil
	}
	out := make(ChannelTable, len(t))
	copy(out, t)
	return out
}

// Validate rejects unnamed, duplicated or negative channels.
func (t ChannelTable) Validate() error {
	seen := make(map[string]struct{}, len(t))
	for _, ch := range t {
		if ch.Name == "" {
			return &ValidationError{Field: "channel.name", Reason: "required"}
		}
		if _, dup := seen[ch.Name]; dup {
			return &ValidationError{Field: "channel.name", Value: ch.Name, Reason: "duplicate channel"}
		}
		seen[ch.Name] = struct{}{}
		if ch.DemandKg < 0 || ch.PricePerKg < 0 {
			return &ValidationError{Field: "channel", Value: ch.Name, Reason: "demand and price must be non-negative"}
		}
	}
	return nil
}
