package topics

const (
	// Mesas (criação, membros, admins)
	TableEvents = "table_events"

	// Partidas (ciclo de vida e apostas)
	MatchEvents = "match_events"

	// Liquidações de pool (distribuição, rollover, absorção)
	PoolSettlements = "pool_settlements"
)
