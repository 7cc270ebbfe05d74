package nanobanana

// ImageInput - inline image attached to a generation call
type ImageInput struct {
	Data     []byte
	MimeType string
}

// GenerateRequest - one image generation call
type GenerateRequest struct {
	Prompt          string
	SceneImage      *ImageInput
	ProductImage    *ImageInput
	Temperature     float64
	MaxOutputTokens int
}

// Usage - token accounting reported with a successful generation
type Usage struct {
	PromptTokens int `json:"promptTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// ErrorInfo - structured provider failure
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GenerateResponse - outcome of a generation call. Provider failures are
// reported here with Success=false, never as a Go error.
type GenerateResponse struct {
	Success     bool       `json:"success"`
	ImageBase64 string     `json:"imageBase64,omitempty"`
	MimeType    string     `json:"mimeType,omitempty"`
	Usage       *Usage     `json:"usage,omitempty"`
	Error       *ErrorInfo `json:"error,omitempty"`
}

// Gemini generateContent wire types.

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text,omitempty"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount int `json:"promptTokenCount"`
		TotalTokenCount  int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}
