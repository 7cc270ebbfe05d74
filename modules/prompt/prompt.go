package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Prompt length gate applied before any provider call.
const (
	MinPromptLength = 10
	MaxPromptLength = 4000
)

// Style and placement classifications.
const (
	StyleNatural    = "natural"
	StyleArtistic   = "artistic"
	StyleCommercial = "commercial"
	StyleCasual     = "casual"
	StyleLuxury     = "luxury"

	PlacementForeground = "foreground"
	PlacementBackground = "background"
	PlacementHandheld   = "handheld"
	PlacementSurface    = "surface"
)

// Request - inputs for one prompt build
type Request struct {
	UserDescription      string
	ProductDescription   string
	PlacementDescription string
	StyleDescription     string
	HasSceneImage        bool
}

// Components - named prompt fragments, returned for inspection only
type Components struct {
	ProductPlacement string `json:"productPlacement"`
	StyleGuide       string `json:"styleGuide"`
	PhotographyTerms string `json:"photographyTerms"`
	Composition      string `json:"composition"`
}

// Result - assembled prompt plus the untouched user text
type Result struct {
	EnhancedPrompt string     `json:"enhancedPrompt"`
	OriginalPrompt string     `json:"originalPrompt"`
	Components     Components `json:"components"`
}

type styleConfig struct {
	terms    []string
	keywords []string
}

// Keyword families include the Chinese terms the buyer-show audience
// actually types alongside the English ones.
var photographyStyles = map[string]styleConfig{
	StyleNatural: {
		terms:    []string{"natural lighting", "candid", "authentic", "lifestyle photography"},
		keywords: []string{"soft shadows", "warm tones", "realistic proportions"},
	},
	StyleArtistic: {
		terms:    []string{"artistic composition", "creative angle", "dramatic lighting"},
		keywords: []string{"depth of field", "bokeh", "rule of thirds"},
	},
	StyleCommercial: {
		terms:    []string{"commercial photography", "product showcase", "clean background"},
		keywords: []string{"sharp focus", "professional lighting", "high-end quality"},
	},
	StyleCasual: {
		terms:    []string{"casual lifestyle", "everyday setting", "relaxed atmosphere"},
		keywords: []string{"natural poses", "comfortable environment", "informal"},
	},
	StyleLuxury: {
		terms:    []string{"luxury photography", "premium quality", "elegant setting"},
		keywords: []string{"sophisticated lighting", "refined composition", "high-end"},
	},
}

var styleTriggers = []struct {
	style    string
	keywords []string
}{
	{StyleLuxury, []string{"luxury", "premium", "elegant", "奢华", "高端", "优雅"}},
	{StyleCommercial, []string{"commercial", "professional", "clean", "商务", "专业"}},
	{StyleArtistic, []string{"artistic", "creative", "dramatic", "艺术", "创意"}},
	{StyleCasual, []string{"casual", "relaxed", "everyday", "休闲", "日常"}},
}

var placementTriggers = []struct {
	placement string
	keywords  []string
}{
	{PlacementHandheld, []string{"hold", "hand", "using", "手持", "拿着"}},
	{PlacementSurface, []string{"table", "surface", "desk", "桌", "台面"}},
	{PlacementBackground, []string{"background", "behind", "distant", "背景"}},
}

var placementPhrases = map[string][]string{
	PlacementForeground: {"prominently displayed", "center focus", "main subject"},
	PlacementBackground: {"subtly placed", "background element", "environmental context"},
	PlacementHandheld:   {"naturally held", "in use", "interactive placement"},
	PlacementSurface:    {"placed on surface", "resting naturally", "stable positioning"},
}

var compositionRules = []string{
	"maintain natural perspective and scale",
	"ensure proper lighting consistency",
	"blend seamlessly with existing environment",
	"preserve original image quality and style",
	"maintain realistic shadows and reflections",
}

var productEnhancements = []string{
	"high-quality",
	"well-designed",
	"realistic",
	"detailed",
}

var blockedKeywords = []string{
	"violence", "illegal", "harmful", "nsfw", "adult",
	"weapon", "drug", "gambling", "hate",
}

// DetectStyle - first matching family wins, in fixed priority order
func DetectStyle(description string) string {
	lower := strings.ToLower(description)
	for _, trigger := range styleTriggers {
		for _, keyword := range trigger.keywords {
			if strings.Contains(lower, keyword) {
				return trigger.style
			}
		}
	}
	return StyleNatural
}

// DetectPlacement - first matching family wins, foreground as fallback
func DetectPlacement(description string) string {
	lower := strings.ToLower(description)
	for _, trigger := range placementTriggers {
		for _, keyword := range trigger.keywords {
			if strings.Contains(lower, keyword) {
				return trigger.placement
			}
		}
	}
	return PlacementForeground
}

// enhanceProduct - stable adjective choice so rebuilds produce identical prompts
func enhanceProduct(productDescription string) string {
	if productDescription == "" {
		return "the product"
	}
	adjective := productEnhancements[utf8.RuneCountInString(productDescription)%len(productEnhancements)]
	return adjective + " " + productDescription
}

// Generate - assemble the enhanced prompt from classified inputs
func Generate(req Request) Result {
	styleSource := req.StyleDescription
	if styleSource == "" {
		styleSource = req.UserDescription
	}
	placementSource := req.PlacementDescription
	if placementSource == "" {
		placementSource = req.UserDescription
	}

	style := photographyStyles[DetectStyle(styleSource)]
	placement := placementPhrases[DetectPlacement(placementSource)]
	enhancedProduct := enhanceProduct(req.ProductDescription)

	productPlacement := req.PlacementDescription
	if productPlacement == "" {
		productPlacement = placement[0] + " in the scene"
	}

	components := Components{
		ProductPlacement: productPlacement,
		StyleGuide:       strings.Join(style.terms, ", ") + ", " + strings.Join(style.keywords, ", "),
		PhotographyTerms: strings.Join(compositionRules[:3], ", "),
		Composition:      "natural integration, professional quality, photorealistic result",
	}

	var enhancedPrompt string
	if req.HasSceneImage {
		enhancedPrompt = fmt.Sprintf(`Please seamlessly integrate %s into this scene. %s.

Style requirements: %s
Placement: %s
Quality standards: %s, %s

The final image should look completely natural and professional, as if the product was originally part of the scene. Maintain the original lighting, perspective, and atmosphere while ensuring the product fits perfectly within the environment.`,
			enhancedProduct, req.UserDescription,
			components.StyleGuide, components.ProductPlacement,
			components.PhotographyTerms, components.Composition)
	} else {
		enhancedPrompt = fmt.Sprintf(`Create a high-quality lifestyle photograph featuring %s. %s

Photography style: %s
Composition: %s
Technical requirements: %s

The image should be suitable for social media sharing and showcase the product in an appealing, realistic way that potential buyers would find engaging and trustworthy.`,
			enhancedProduct, req.UserDescription,
			components.StyleGuide, components.Composition,
			components.PhotographyTerms)
	}

	return Result{
		EnhancedPrompt: enhancedPrompt,
		OriginalPrompt: req.UserDescription,
		Components:     components,
	}
}

// Validate - length bounds plus the blocked-content keyword gate
func Validate(prompt string) bool {
	length := utf8.RuneCountInString(prompt)
	if length < MinPromptLength || length > MaxPromptLength {
		return false
	}

	lower := strings.ToLower(prompt)
	for _, keyword := range blockedKeywords {
		if strings.Contains(lower, keyword) {
			return false
		}
	}
	return true
}

// OptimizeForGemini - single-pass narrative framing. Not idempotent; callers
// apply it once per generation request.
func OptimizeForGemini(prompt string) string {
	lower := strings.ToLower(prompt)
	if !strings.Contains(lower, "create") && !strings.Contains(lower, "generate") {
		prompt = "Create a photorealistic image: " + prompt
	}

	if utf8.RuneCountInString(prompt) > 500 {
		return prompt + "\n\nPlease interpret this request as a complete scene description and create a cohesive, high-quality photographic image that tells the story described above."
	}

	return prompt
}

// BuildForGeneration - the one production entry point: generate, optimize
// once, then gate. Returns ok=false when the optimized prompt fails validation.
func BuildForGeneration(req Request) (string, Result, bool) {
	result := Generate(req)
	optimized := OptimizeForGemini(result.EnhancedPrompt)
	if !Validate(optimized) {
		return "", result, false
	}
	return optimized, result, true
}
