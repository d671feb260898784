package openimage

import (
	"context"
	"fmt"
	"strings"
)

// GenderPrompt asks a text LLM for the likely gender of a named person.
func GenderPrompt(name string) string {
	return fmt.Sprintf("Is the person named '%s' likely male or female? "+
		"Respond with ONLY one word: 'male', 'female', or 'unknown'.", name)
}

// VisionGenderPrompt asks a multimodal LLM for the apparent gender of the
// main person in an image.
const VisionGenderPrompt = `You are checking photos for a people search.
Look at the main person in this image. Answer with exactly one word:
- MALE if the person appears to be a man
- FEMALE if the person appears to be a woman
- UNKNOWN if there is no clear single person or you cannot tell

Answer:`

// visionMaxBytes bounds the preview sent to the vision model.
const visionMaxBytes = 200 * 1024

// ParseGenderResponse normalizes an LLM answer to a Gender. "female" is
// checked first since it contains "male".
func ParseGenderResponse(resp string) Gender {
	lower := strings.ToLower(strings.TrimSpace(resp))
	switch {
	case strings.Contains(lower, "female"):
		return GenderFemale
	case strings.Contains(lower, "male"):
		return GenderMale
	default:
		return GenderUnknown
	}
}

// LLMGender infers gender from names and images through a Classifier.
type LLMGender struct {
	Classifier Classifier
	Downloader *Downloader
}

// InferGender implements GenderInferrer.
func (g *LLMGender) InferGender(ctx context.Context, name string) (Gender, error) {
	resp, err := g.Classifier.Classify(ctx, GenderPrompt(name), nil)
	if err != nil {
		return GenderUnknown, fmt.Errorf("infer gender: %w", err)
	}
	return ParseGenderResponse(resp), nil
}

// ClassifyGender implements GenderClassifier. The image is sent inline as a
// data URL so the model does not need network access.
func (g *LLMGender) ClassifyGender(ctx context.Context, imageURL string) (Gender, error) {
	dl := g.Downloader
	if dl == nil {
		dl = &Downloader{}
	}
	r, err := dl.Download(ctx, imageURL, DownloadOpts{MaxBytes: visionMaxBytes})
	if err != nil {
		return GenderUnknown, err
	}

	resp, err := g.Classifier.Classify(ctx, VisionGenderPrompt, []ImageInput{{
		URL:      EncodeDataURL(r.Data, r.MIMEType),
		MIMEType: r.MIMEType,
	}})
	if err != nil {
		return GenderUnknown, fmt.Errorf("classify gender: %w", err)
	}
	return ParseGenderResponse(resp), nil
}
