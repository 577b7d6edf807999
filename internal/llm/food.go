package llm

import (
	"context"
	"fmt"
	"strings"

	"smart-pantry/internal/shared"
)

const foodPrompt = "List all food items you see in this photo. Only return a comma-separated list of food names. " +
	"Return ONLY the generic food item names (e.g., 'applesauce', 'pasta', 'bread'). " +
	"Do not include brand names, company names, or product names."

// FoodDetector lists the food visible in a photo.
type FoodDetector struct {
	vision VisionGenerator
}

// NewFoodDetector creates a detector backed by vision.
func NewFoodDetector(vision VisionGenerator) *FoodDetector {
	return &FoodDetector{vision: vision}
}

// Detect returns the food names found in a JPEG image.
func (d *FoodDetector) Detect(ctx context.Context, jpegData []byte) ([]string, shared.TokenUsage, error) {
	resp, err := d.vision.DescribeImage(ctx, foodPrompt, jpegData, "jpeg")
	if err != nil {
		return nil, shared.TokenUsage{}, fmt.Errorf("failed to detect food: %w", err)
	}
	return ParseFoodList(resp.Content), resp.Usage, nil
}

// ParseFoodList splits a comma-separated reply into trimmed, non-empty names.
func ParseFoodList(s string) []string {
	items := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.Trim(strings.TrimSpace(part), "."))
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}
