package utils

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile("[^a-z0-9]+")

// Slugify lower-cases s and joins alphanumeric runs with hyphens
func Slugify(s string) string {
	return slug(s, "-")
}

// StageKey maps a pipeline stage name ("Closed Won") to the stage value
// stored on deals ("closed_won").
func StageKey(name string) string {
	return slug(name, "_")
}

func slug(s, sep string) string {
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), sep)
	return strings.Trim(s, sep)
}
