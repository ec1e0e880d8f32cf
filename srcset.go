package tagfilter

import (
	"strconv"
	"strings"
)

type imageCandidates []imageCandidate

// parseSrcSet returns the list of image candidates from the set or false if
// any of them is malformed.
// https://html.spec.whatwg.org/#parse-a-srcset-attribute
func parseSrcSet(attr string) (imageCandidates, bool) {
	n := strings.Count(attr, ", ")
	images := make(imageCandidates, 0, n+1)

	for value := range strings.SplitSeq(attr, ", ") {
		image, ok := parseImageCandidate(value)
		if !ok {
			return nil, false
		}
		images = append(images, image)
	}
	return images, true
}

type imageCandidate struct {
	ImageURL   string
	Descriptor string
}

func parseImageCandidate(input string) (imageCandidate, bool) {
	imageURL, descr, _ := strings.Cut(strings.TrimSpace(input), " ")
	if imageURL == "" || !validWidthDensity(descr) {
		return imageCandidate{}, false
	}
	return imageCandidate{ImageURL: imageURL, Descriptor: descr}, true
}

func validWidthDensity(value string) bool {
	if value == "" {
		return true
	} else if i := strings.Index(value, " "); i >= 0 {
		return false
	}

	lastChar := value[len(value)-1:]
	if lastChar != "w" && lastChar != "x" {
		return false
	}

	_, err := strconv.ParseFloat(value[0:len(value)-1], 32)
	return err == nil
}

// srcSetPermitted checks URL of every image candidate. One bad candidate
// rejects the whole attribute.
func (self *xssGuard) srcSetPermitted(value string) bool {
	images, ok := parseSrcSet(value)
	if !ok {
		return false
	}

	for _, image := range images {
		if !self.urlPermitted(image.ImageURL) {
			return false
		}
	}
	return true
}
