package dto

// Link preview provider names.
const (
	ProviderZoom        = "zoom"
	ProviderYouTube     = "youtube"
	ProviderBasic       = "basic"
	ProviderLinkPreview = "linkpreview"
	ProviderPlaceholder = "placeholder"
)

// LinkPreview is the card rendered for a URL.
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Provider    string `json:"provider"`
	Blocked     bool   `json:"blocked,omitempty"`
	MeetingID   string `json:"meetingId,omitempty"`
	Passcode    string `json:"passcode,omitempty"`
}

// BatchPreviewRequest asks for previews of every URL found in the texts.
type BatchPreviewRequest struct {
	Texts []string `json:"texts" validate:"required,min=1,max=200"`
}

// BatchPreviewResponse maps each URL to its preview.
type BatchPreviewResponse struct {
	Previews map[string]LinkPreview `json:"previews"`
}
