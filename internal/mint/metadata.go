package mint

// Metadata is the document an asset's url points at.
type Metadata struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Image          string         `json:"image"`
	Decimals       int            `json:"decimals"`
	UnitName       string         `json:"unitName"`
	ImageIntegrity string         `json:"image_integrity"`
	ImageMimetype  string         `json:"image_mimetype"`
	Properties     map[string]any `json:"properties"`
	Collection     string         `json:"collection,omitempty"`
}
