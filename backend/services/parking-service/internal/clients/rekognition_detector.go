package clients

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

const rekognitionMethod = "aws-rekognition"

// Vietnamese plates such as 51F-12345, 29A-123.45 or 30LD 1234 once dots are stripped.
var platePattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{1,2}[0-9]?[- ]?[0-9]{3,5}$`)

type textDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// RekognitionDetector finds plates among text detected by AWS Rekognition.
type RekognitionDetector struct {
	client        textDetector
	minConfidence float64
}

// NewRekognitionDetector loads AWS configuration for region and returns detector.
// minConfidence is on a 0..1 scale.
func NewRekognitionDetector(ctx context.Context, region string, minConfidence float64) (*RekognitionDetector, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("recognition: load aws config: %w", err)
	}
	return &RekognitionDetector{
		client:        rekognition.NewFromConfig(cfg),
		minConfidence: minConfidence,
	}, nil
}

// Detect implements PlateDetector. The candidate with the highest confidence wins.
func (d *RekognitionDetector) Detect(ctx context.Context, image []byte, _ string) (*Detection, error) {
	out, err := d.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	var best *Detection
	var seen []string
	for _, td := range out.TextDetections {
		if td.Type != types.TextTypesLine && td.Type != types.TextTypesWord {
			continue
		}
		raw := aws.ToString(td.DetectedText)
		if raw == "" || td.Confidence == nil {
			continue
		}
		candidate := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), ".", "")
		seen = append(seen, candidate)
		if !platePattern.MatchString(candidate) {
			continue
		}
		confidence := float64(aws.ToFloat32(td.Confidence)) / 100
		if confidence < d.minConfidence {
			continue
		}
		if best == nil || confidence > best.Confidence {
			best = &Detection{
				Plate:      strings.ReplaceAll(candidate, " ", "-"),
				Confidence: confidence,
				Method:     rekognitionMethod,
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: candidates %q", ErrPlateNotDetected, seen)
	}
	return best, nil
}
