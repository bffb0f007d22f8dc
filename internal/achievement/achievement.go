package achievement

type BadgeID string

const (
	FirstPrayer BadgeID = "first_prayer"
	PerfectDay  BadgeID = "perfect_day"
	WeekWarrior BadgeID = "week_warrior"
	MonthMaster BadgeID = "month_master"
	EarlyBird   BadgeID = "early_bird"
	Consistent  BadgeID = "consistent"
)

type Badge struct {
	ID          BadgeID `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Catalog is the fixed badge list in display order.
var Catalog = []Badge{
	{ID: FirstPrayer, Title: "First Prayer", Description: "Complete your very first prayer.", Icon: "star"},
	{ID: PerfectDay, Title: "Perfect Day", Description: "Complete all 5 prayers in a single day.", Icon: "checkmark.seal"},
	{ID: WeekWarrior, Title: "Week Warrior", Description: "Maintain a 7-day streak.", Icon: "flame"},
	{ID: MonthMaster, Title: "Month Master", Description: "Maintain a 30-day streak.", Icon: "trophy"},
	{ID: EarlyBird, Title: "Early Bird", Description: "Complete 10 Fajr prayers on time.", Icon: "sunrise"},
	{ID: Consistent, Title: "Consistent", Description: "Complete 50 total prayers.", Icon: "heart.fill"},
}

func Lookup(id BadgeID) (Badge, bool) {
	for _, b := range Catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

type BadgeWithStatus struct {
	Badge
	Unlocked bool `json:"unlocked"`
}
