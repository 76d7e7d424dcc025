package challenge

type Type string

const (
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
)

func (t Type) Valid() bool {
	return t == TypeWeekly || t == TypeMonthly
}

// Challenge is a community challenge shown on the community tab.
type Challenge struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Type         Type   `json:"type"`
	Participants int    `json:"participants"`
	Comments     int    `json:"comments"`
	Likes        int    `json:"likes"`
	Reward       string `json:"reward"`
	Image        string `json:"image,omitempty"`
	Duration     string `json:"duration"`
	StartDate    string `json:"startDate"`
	XP           int    `json:"xp"`
}

type ListResponse struct {
	Challenges []Challenge `json:"challenges"`
}
