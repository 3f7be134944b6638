package collections

// Descriptor is one collection entry. Once pinned it is immutable; any edit
// yields a new locator.
type Descriptor struct {
	Name              string  `json:"name"`
	Network           string  `json:"network"`
	BannerImage       string  `json:"banner_image"`
	AvatarImage       string  `json:"avatar_image"`
	Explicit          bool    `json:"explicit"`
	RoyaltyPercentage float64 `json:"royalty_percentage"`
	Creator           string  `json:"creator"`
}

// Document is the published file: {"collections":[...]}.
type Document struct {
	Collections []Descriptor `json:"collections"`
}

// File is an optional image attached to a publish request.
type File struct {
	Name     string
	Mimetype string
	Data     []byte
}

type PublishRequest struct {
	Name              string
	Creator           string
	Banner            *File
	Avatar            *File
	Explicit          bool
	RoyaltyPercentage float64
}

// ImagePolicy decides what a failed banner or avatar upload does to a publish.
type ImagePolicy int

const (
	// DegradeOnImageError publishes with the image field left empty.
	DegradeOnImageError ImagePolicy = iota
	// FailOnImageError aborts the publish.
	FailOnImageError
)

func (p ImagePolicy) String() string {
	switch p {
	case DegradeOnImageError:
		return "degrade"
	case FailOnImageError:
		return "fail"
	default:
		return "unknown"
	}
}

// ParseImagePolicy accepts "degrade" or "fail". Empty means degrade.
func ParseImagePolicy(s string) (ImagePolicy, bool) {
	switch s {
	case "", "degrade":
		return DegradeOnImageError, true
	case "fail":
		return FailOnImageError, true
	default:
		return DegradeOnImageError, false
	}
}
