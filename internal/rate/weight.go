package rate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultVolumetricDivisor converts cubic centimeters to volumetric kilograms.
const DefaultVolumetricDivisor = 5000

// Dimensions are package measurements in centimeters.
type Dimensions struct {
	LengthCm float64
	WidthCm  float64
	HeightCm float64
}

var dimensionDelimiters = strings.NewReplacer("X", "x", "*", "x", "×", "x")

// ParseDimensions parses "LxWxH". Accepted delimiters are x, X, * and ×, one between each side.
func ParseDimensions(value string) (Dimensions, error) {
	parts := strings.Split(dimensionDelimiters.Replace(strings.TrimSpace(value)), "x")
	if len(parts) != 3 {
		return Dimensions{}, fmt.Errorf("%w: %q", ErrInvalidDimensions, value)
	}
	var nums [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return Dimensions{}, fmt.Errorf("%w: %q", ErrInvalidDimensions, value)
		}
		nums[i] = f
	}
	return Dimensions{LengthCm: nums[0], WidthCm: nums[1], HeightCm: nums[2]}, nil
}

// WeightNormalizer computes chargeable weight.
type WeightNormalizer struct {
	Divisor float64
}

// VolumetricWeight returns L×W×H / divisor in kilograms.
func (n WeightNormalizer) VolumetricWeight(d Dimensions) float64 {
	return d.LengthCm * d.WidthCm * d.HeightCm / n.divisor()
}

// EffectiveWeight returns the greater of the actual and volumetric weight. Missing or malformed
// dimensions fall back to the actual weight; ignored reports the malformed case.
func (n WeightNormalizer) EffectiveWeight(actualKg float64, dimensions string) (kg float64, ignored bool) {
	if strings.TrimSpace(dimensions) == "" {
		return actualKg, false
	}
	d, err := ParseDimensions(dimensions)
	if err != nil {
		return actualKg, true
	}
	volumetric := n.VolumetricWeight(d)
	if math.IsInf(volumetric, 0) || math.IsNaN(volumetric) {
		return actualKg, true
	}
	return math.Max(actualKg, volumetric), false
}

func (n WeightNormalizer) divisor() float64 {
	if n.Divisor <= 0 {
		return DefaultVolumetricDivisor
	}
	return n.Divisor
}
