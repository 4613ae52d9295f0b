package lead

// WordsPerHour is the narration pace used to turn a manuscript word count
// into finished audio hours.
const WordsPerHour = 9000

// Service tier identifiers.
const (
	TierNarrationOnly  = "narrationOnly"
	TierFullCast       = "fullCast"
	TierImmersiveAudio = "immersiveAudio"
)

// ServiceTier is one of the fixed narration offerings.
type ServiceTier struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	HourlyRate float64 `json:"hourlyRate"`
}

// Genre groups.
const (
	GroupFiction    = "Fiction"
	GroupNonFiction = "Non-Fiction"
	GroupOther      = "Other"
)

// Genre is one entry of the estimator's genre picker.
type Genre struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Group string `json:"group"`
}

var serviceTiers = []ServiceTier{
	{ID: TierNarrationOnly, Label: "Narration Only", HourlyRate: 75},
	{ID: TierFullCast, Label: "Full Cast", HourlyRate: 150},
	{ID: TierImmersiveAudio, Label: "Immersive Audio", HourlyRate: 250},
}

var genres = []Genre{
	{Value: "fantasy", Label: "Fantasy", Group: GroupFiction},
	{Value: "science-fiction", Label: "Science Fiction", Group: GroupFiction},
	{Value: "romance", Label: "Romance", Group: GroupFiction},
	{Value: "thriller-mystery", Label: "Thriller/Mystery", Group: GroupFiction},
	{Value: "historical-fiction", Label: "Historical Fiction", Group: GroupFiction},
	{Value: "contemporary-fiction", Label: "Contemporary Fiction", Group: GroupFiction},
	{Value: "childrens-fiction", Label: "Children's Fiction", Group: GroupFiction},
	{Value: "young-adult-fiction", Label: "Young Adult (YA) Fiction", Group: GroupFiction},
	{Value: "biography-memoir", Label: "Biography/Memoir", Group: GroupNonFiction},
	{Value: "self-help-personal-development", Label: "Self-Help/Personal Development", Group: GroupNonFiction},
	{Value: "history-nonfic", Label: "History", Group: GroupNonFiction},
	{Value: "business-economics", Label: "Business/Economics", Group: GroupNonFiction},
	{Value: "science-technology-nonfic", Label: "Science/Technology", Group: GroupNonFiction},
	{Value: "education-nonfic", Label: "Education", Group: GroupNonFiction},
	{Value: "true-crime", Label: "True Crime", Group: GroupNonFiction},
	{Value: "essays", Label: "Essays", Group: GroupNonFiction},
	{Value: "spirituality-religion", Label: "Spirituality/Religion", Group: GroupNonFiction},
	{Value: "other-genre", Label: "Other", Group: GroupOther},
}

// ServiceTiers returns a copy of the tier catalog in display order.
func ServiceTiers() []ServiceTier {
	out := make([]ServiceTier, len(serviceTiers))
	copy(out, serviceTiers)
	return out
}

// LookupTier finds a tier by identifier.
func LookupTier(id string) (ServiceTier, bool) {
	for _, t := range serviceTiers {
		if t.ID == id {
			return t, true
		}
	}
	return ServiceTier{}, false
}

// Genres returns a copy of the genre catalog in display order.
func Genres() []Genre {
	out := make([]Genre, len(genres))
	copy(out, genres)
	return out
}

// LookupGenre finds a genre by its form value.
func LookupGenre(value string) (Genre, bool) {
	for _, g := range genres {
		if g.Value == value {
			return g, true
		}
	}
	return Genre{}, false
}

func tierIDs() []string {
	ids := make([]string, 0, len(serviceTiers))
	for _, t := range serviceTiers {
		ids = append(ids, t.ID)
	}
	return ids
}
