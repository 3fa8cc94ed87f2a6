// Package collection maps Sentinel product titles to STAC collection
// names and knows which manifest files each platform ships.
package collection

import (
	"fmt"
	"regexp"
	"strings"
)

type mapping struct {
	pattern    *regexp.Regexp
	collection string
}

// Ordered: first match wins.
var mappings = []mapping{
	{regexp.MustCompile(`^S1[A-DP]_.._GRD[HM]_.*`), "sentinel-1-grd"},
	{regexp.MustCompile(`^S1[A-DP]_.._SLC__.*`), "sentinel-1-slc"},
	{regexp.MustCompile(`^S1[A-DP]_.._RAW__.*`), "sentinel-1-raw"},
	{regexp.MustCompile(`^S1[A-DP]_.._OCN__.*`), "sentinel-1-ocn"},
	{regexp.MustCompile(`^S2[A-DP]_MSIL1B_.*`), "sentinel-2-l1b"},
	{regexp.MustCompile(`^S2[A-DP]_MSIL1C_.*`), "sentinel-2-l1c"},
	{regexp.MustCompile(`^S2[A-DP]_MSIL2A_.*`), "sentinel-2-l2a"},
	{regexp.MustCompile(`^S3[A-DP]_OL_1_.*`), "sentinel-3-olci-l1b"},
	{regexp.MustCompile(`^S3[A-DP]_OL_2_.*`), "sentinel-3-olci-l2"},
	{regexp.MustCompile(`^S3[A-DP]_SL_1_.*`), "sentinel-3-slstr-l1b"},
	{regexp.MustCompile(`^S3[A-DP]_SL_2_.*`), "sentinel-3-slstr-l2"},
	{regexp.MustCompile(`^S3[A-DP]_SR_1_.*`), "sentinel-3-stm-l1"},
	{regexp.MustCompile(`^S3[A-DP]_SR_2_.*`), "sentinel-3-stm-l2"},
	{regexp.MustCompile(`^S3[A-DP]_SY_1_.*`), "sentinel-3-syn-l1"},
	{regexp.MustCompile(`^S3[A-DP]_SY_2_.*`), "sentinel-3-syn-l2"},
	{regexp.MustCompile(`^S5[A-DP]_OFFL_L1_.*`), "sentinel-5p-l1"},
	{regexp.MustCompile(`^S5[A-DP]_NRTI_L1_.*`), "sentinel-5p-l1"},
	{regexp.MustCompile(`^S5[A-DP]_OFFL_L2_.*`), "sentinel-5p-l2"},
	{regexp.MustCompile(`^S5[A-DP]_NRTI_L2_.*`), "sentinel-5p-l2"},
}

// Manifest files fetched per platform before item generation.
var platformFiles = map[string][]string{
	"s1": {"manifest.safe"},
	"s2": {"manifest.safe"},
	"s3": {"xfdumanifest.xml"},
	"s5": {},
}

// ForTitle returns the collection name for a product title.
func ForTitle(title string) (string, error) {
	for _, m := range mappings {
		if m.pattern.MatchString(title) {
			return m.collection, nil
		}
	}
	return "", fmt.Errorf("product %q matches no known collection", title)
}

// Platform returns the lowercased platform prefix of a title, for
// example "s2" for S2A_MSIL2A_... titles.
func Platform(title string) string {
	if len(title) < 2 {
		return ""
	}
	return strings.ToLower(title[:2])
}

// ManifestFiles returns the manifest files to fetch for a platform.
func ManifestFiles(platform string) ([]string, error) {
	files, ok := platformFiles[platform]
	if !ok {
		return nil, fmt.Errorf("platform %q is not supported", platform)
	}
	return files, nil
}
