// Package analysis assesses whether a product is safe for a user's
// dietary restrictions from a photo of its ingredient list. The model
// call itself sits behind the Analyzer interface; this package owns
// the prompt, the input validation and one Gemini-backed implementation.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRestrictionsTooVague is returned when the dietary restrictions
	// text is too short or names no recognized dietary term
	ErrRestrictionsTooVague = errors.New("dietary restrictions are not detailed enough")
	// ErrUnsupportedImage is returned for image types the analyzer does not accept
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrImageTooLarge is returned when the uploaded image exceeds the size limit
	ErrImageTooLarge = errors.New("image too large")
)

// MaxImageBytes limits uploaded label photos
const MaxImageBytes = 8 * 1024 * 1024

// Disclaimer accompanies every assessment returned to the client
const Disclaimer = "This analysis is AI-generated and should not be the sole basis " +
	"for dietary decisions. Always consult with healthcare professionals for medical advice."

// supportedImageTypes lists accepted label photo content types.
// Bytes are forwarded to the model unchanged; no decoding happens here.
var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// dietaryTerms are the recognized restriction keywords; at least one
// must appear for the text to be considered specific enough
var dietaryTerms = []string{
	"vegetarian", "vegan", "allerg", "gluten", "dairy", "kosher", "halal",
	"nut", "egg", "soy", "fish", "shellfish", "wheat", "lactose",
}

// ImageInput is a label photo as uploaded, type plus raw bytes
type ImageInput struct {
	ContentType string
	Data        []byte
}

// Analyzer is the generative-model collaborator. Implementations take
// the label photo and restrictions and return the assessment text.
type Analyzer interface {
	Analyze(ctx context.Context, image ImageInput, restrictions string) (string, error)
}

// ValidateRestrictions checks that the dietary restrictions text is
// sufficiently detailed: minimum length and at least one known term.
func ValidateRestrictions(restrictions string) bool {
	if len(strings.TrimSpace(restrictions)) < 10 {
		return false
	}

	lower := strings.ToLower(restrictions)
	for _, term := range dietaryTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// ValidateImage checks content type and size without decoding
func ValidateImage(image ImageInput) error {
	if !supportedImageTypes[image.ContentType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, image.ContentType)
	}
	if len(image.Data) == 0 {
		return fmt.Errorf("%w: empty upload", ErrUnsupportedImage)
	}
	if len(image.Data) > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}

// BuildPrompt creates the structured prompt sent alongside the image
func BuildPrompt(restrictions string) string {
	return fmt.Sprintf(`Analyze the ingredients shown in this image and determine if the product is safe for someone with the following dietary restrictions:
%s

Please provide:
1. Whether the product is safe or unsafe
2. A detailed explanation of your analysis
3. Any concerning ingredients if present
4. Suggested alternatives if the product is unsafe

Format your response in a clear, easy-to-read manner.`, restrictions)
}
