package extract

import "strings"

// excludedLabels is a blacklist of every other label the AI models are known
// to emit. Filtering by blacklist rather than whitelist keeps weird OCR reads
// and vanity plates intact.
var excludedLabels = map[string]struct{}{}

func init() {
	labels := []string{
		"person", "bicycle", "car", "motorcycle", "bus", "truck",
		"bird", "cat", "dog", "horse", "sheep", "cow", "bear", "deer",
		"rabbit", "raccoon", "fox", "skunk", "squirrel", "pig",
		"vehicle", "boat", "bottle", "chair", "cup", "table",
		"airplane", "train", "traffic light", "fire hydrant",
		"stop sign", "parking meter", "bench", "elephant", "zebra",
		"giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase",
		"frisbee", "skis", "snowboard", "sports ball", "kite",
		"baseball bat", "baseball glove", "skateboard", "surfboard",
		"tennis racket", "wine glass", "fork", "knife", "spoon", "bowl",
		"banana", "apple", "sandwich", "orange", "broccoli", "carrot",
		"hot dog", "pizza", "donut", "cake", "couch", "potted plant",
		"bed", "dining table", "toilet", "tv", "laptop", "mouse",
		"remote", "keyboard", "cell phone", "microwave", "oven",
		"toaster", "sink", "refrigerator", "book", "clock", "vase",
		"scissors", "teddy bear", "hair drier", "toothbrush",
		"plate", "dayplate", "nightplate", "people", "motorbike",
	}
	for _, l := range labels {
		excludedLabels[l] = struct{}{}
	}
}

// NormalizePlate removes all whitespace and uppercases the plate text.
func NormalizePlate(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// FromMemo parses a comma-separated "label:confidence" memo into normalized
// plate candidates. Non-plate object labels are dropped, the legacy
// dayplate/nightplate bracket format is unwrapped, and duplicates are removed
// preserving first-seen order. An empty result means no plate was found.
func FromMemo(memo string) []string {
	if strings.TrimSpace(memo) == "" {
		return nil
	}

	var plates []string
	seen := map[string]struct{}{}

	for _, detection := range strings.Split(memo, ",") {
		// Tokens without a colon fall through with the whole token as label.
		label, _, _ := strings.Cut(strings.TrimSpace(detection), ":")
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}

		if _, excluded := excludedLabels[strings.ToLower(label)]; excluded {
			continue
		}

		// The older dayplate and nightplate models wrap the plate in brackets.
		if strings.Contains(label, "[") && strings.Contains(label, "]") {
			label = strings.NewReplacer("[", "", "]", "").Replace(label)
		}

		plate := NormalizePlate(label)
		if plate == "" {
			continue
		}
		if _, dup := seen[plate]; dup {
			continue
		}
		seen[plate] = struct{}{}
		plates = append(plates, plate)
	}

	return plates
}
