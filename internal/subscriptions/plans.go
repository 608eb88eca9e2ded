package subscriptions

// Catalog holds the plan table. Free-tier daily limits can be overridden by
// configuration; paid tiers are fixed.
type Catalog struct {
	plans map[Tier]Plan
}

// NewCatalog builds the plan table with the given free-tier daily limits.
func NewCatalog(freeChatsPerDay, freeUploadsPerDay int) *Catalog {
	return &Catalog{plans: map[Tier]Plan{
		TierFree:    {Tier: TierFree, MonthlyTokens: 100, UploadsPerDay: freeUploadsPerDay, ChatsPerDay: freeChatsPerDay},
		TierBasic:   {Tier: TierBasic, MonthlyTokens: 500, UploadsPerDay: 20, ChatsPerDay: 50},
		TierPro:     {Tier: TierPro, MonthlyTokens: 2000, UploadsPerDay: Unlimited, ChatsPerDay: Unlimited},
		TierPremium: {Tier: TierPremium, MonthlyTokens: Unlimited, UploadsPerDay: Unlimited, ChatsPerDay: Unlimited},
	}}
}

// DefaultCatalog uses the stock free limits of 10 chats and 5 uploads a day.
func DefaultCatalog() *Catalog {
	return NewCatalog(10, 5)
}

// Plan returns the plan for tier, falling back to free for unknown tiers.
func (c *Catalog) Plan(tier Tier) Plan {
	if p, ok := c.plans[tier]; ok {
		return p
	}
	return c.plans[TierFree]
}

// All lists plans from cheapest to most generous.
func (c *Catalog) All() []Plan {
	return []Plan{c.plans[TierFree], c.plans[TierBasic], c.plans[TierPro], c.plans[TierPremium]}
}

// MonthlyAllotment is the number of tokens a tier receives each month. An
// unlimited plan never spends tokens, so it receives the free allotment as a
// display balance.
func (c *Catalog) MonthlyAllotment(tier Tier) int {
	n := c.Plan(tier).MonthlyTokens
	if n == Unlimited {
		return c.plans[TierFree].MonthlyTokens
	}
	return n
}
