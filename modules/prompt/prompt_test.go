package prompt

import (
	"strings"
	"testing"
)

func TestDetectStyle(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"luxury keyword", "a luxury watch on a marble table", StyleLuxury},
		{"luxury chinese", "我想要奢华优雅的风格", StyleLuxury},
		{"luxury beats commercial", "luxury but also professional clean shots", StyleLuxury},
		{"commercial", "clean professional studio look", StyleCommercial},
		{"artistic", "something creative with dramatic shadows", StyleArtistic},
		{"casual", "relaxed everyday vibe", StyleCasual},
		{"no match falls back to natural", "put the cup next to the window", StyleNatural},
		{"case insensitive", "PREMIUM finish", StyleLuxury},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectStyle(tc.text); got != tc.want {
				t.Errorf("DetectStyle(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetectPlacement(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"handheld", "a person holding the phone", PlacementHandheld},
		{"surface", "resting on the wooden table", PlacementSurface},
		{"background", "visible behind the sofa", PlacementBackground},
		{"default foreground", "show the sneakers clearly", PlacementForeground},
		{"handheld wins over surface", "hand it over the table", PlacementHandheld},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectPlacement(tc.text); got != tc.want {
				t.Errorf("DetectPlacement(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	t.Run("scene template integrates product", func(t *testing.T) {
		result := Generate(Request{
			UserDescription:    "place the tumbler near the laptop",
			ProductDescription: "stainless steel tumbler",
			HasSceneImage:      true,
		})

		if !strings.Contains(result.EnhancedPrompt, "seamlessly integrate") {
			t.Errorf("scene prompt missing integration instruction: %q", result.EnhancedPrompt)
		}
		if !strings.Contains(result.EnhancedPrompt, "stainless steel tumbler") {
			t.Error("scene prompt missing product description")
		}
		if result.OriginalPrompt != "place the tumbler near the laptop" {
			t.Errorf("original prompt altered: %q", result.OriginalPrompt)
		}
	})

	t.Run("standalone template without scene", func(t *testing.T) {
		result := Generate(Request{
			UserDescription: "a cozy morning coffee moment",
			HasSceneImage:   false,
		})

		if !strings.Contains(result.EnhancedPrompt, "Create a high-quality lifestyle photograph") {
			t.Errorf("standalone prompt missing lifestyle framing: %q", result.EnhancedPrompt)
		}
		if !strings.Contains(result.EnhancedPrompt, "the product") {
			t.Error("missing product fallback for empty product description")
		}
	})

	t.Run("explicit placement passes through verbatim", func(t *testing.T) {
		result := Generate(Request{
			UserDescription:      "show the bag",
			PlacementDescription: "on the passenger seat",
			HasSceneImage:        true,
		})
		if result.Components.ProductPlacement != "on the passenger seat" {
			t.Errorf("placement = %q, want verbatim input", result.Components.ProductPlacement)
		}
	})

	t.Run("style description overrides user description for classification", func(t *testing.T) {
		result := Generate(Request{
			UserDescription:  "casual morning scene",
			StyleDescription: "luxury premium look",
			HasSceneImage:    false,
		})
		if !strings.Contains(result.Components.StyleGuide, "luxury photography") {
			t.Errorf("style guide = %q, want luxury terms", result.Components.StyleGuide)
		}
	})

	t.Run("components always populated", func(t *testing.T) {
		result := Generate(Request{UserDescription: "anything at all", HasSceneImage: false})
		c := result.Components
		if c.ProductPlacement == "" || c.StyleGuide == "" || c.PhotographyTerms == "" || c.Composition == "" {
			t.Errorf("empty component in %+v", c)
		}
	})

	t.Run("deterministic for identical input", func(t *testing.T) {
		req := Request{
			UserDescription:    "tumbler on a desk",
			ProductDescription: "ceramic tumbler",
			HasSceneImage:      true,
		}
		if Generate(req).EnhancedPrompt != Generate(req).EnhancedPrompt {
			t.Error("Generate is not deterministic")
		}
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		prompt string
		want   bool
	}{
		{"too short", "short", false},
		{"exactly min length", strings.Repeat("a", MinPromptLength), true},
		{"too long", strings.Repeat("a", MaxPromptLength+1), false},
		{"exactly max length", strings.Repeat("a", MaxPromptLength), true},
		{"blocked keyword", "a scene with a weapon on the table", false},
		{"blocked keyword uppercase", "NSFW content please", false},
		{"clean prompt", "a tumbler on a sunny kitchen counter", true},
		{"multibyte length counted in runes", strings.Repeat("图", MinPromptLength), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Validate(tc.prompt); got != tc.want {
				t.Errorf("Validate(len=%d) = %v, want %v", len(tc.prompt), got, tc.want)
			}
		})
	}
}

func TestOptimizeForGemini(t *testing.T) {
	t.Run("prepends photorealistic framing", func(t *testing.T) {
		got := OptimizeForGemini("a tumbler on a desk")
		if !strings.HasPrefix(got, "Create a photorealistic image: ") {
			t.Errorf("missing prefix: %q", got)
		}
	})

	t.Run("no prefix when create already present", func(t *testing.T) {
		got := OptimizeForGemini("Create a scene with a tumbler")
		if strings.Count(got, "Create") != 1 {
			t.Errorf("prefix duplicated: %q", got)
		}
	})

	t.Run("no prefix when generate present", func(t *testing.T) {
		in := "please generate a tumbler photo"
		if got := OptimizeForGemini(in); got != in {
			t.Errorf("got %q, want unchanged", got)
		}
	})

	t.Run("long prompt gains closing sentence", func(t *testing.T) {
		long := "create " + strings.Repeat("a detailed scene ", 40)
		got := OptimizeForGemini(long)
		if !strings.Contains(got, "tells the story described above") {
			t.Error("missing narrative closing sentence for long prompt")
		}
	})

	t.Run("short prompt gains no closing sentence", func(t *testing.T) {
		got := OptimizeForGemini("create a tiny scene")
		if strings.Contains(got, "tells the story described above") {
			t.Error("unexpected closing sentence for short prompt")
		}
	})
}

func TestBuildForGeneration(t *testing.T) {
	t.Run("optimizes exactly once", func(t *testing.T) {
		optimized, _, ok := BuildForGeneration(Request{
			UserDescription: "a tumbler next to a laptop on a desk",
			HasSceneImage:   true,
		})
		if !ok {
			t.Fatal("expected valid prompt")
		}
		if strings.Count(optimized, "tells the story described above") > 1 {
			t.Error("closing sentence appended more than once")
		}
	})

	t.Run("rejects blocked content before any network work", func(t *testing.T) {
		_, _, ok := BuildForGeneration(Request{
			UserDescription: "integrate a weapon into the scene",
			HasSceneImage:   true,
		})
		if ok {
			t.Error("expected validation failure for blocked keyword")
		}
	})
}
