package modpipe

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Variant is the regional flavour of a download link.
type Variant string

const (
	VariantEU      Variant = "EU"
	VariantNA      Variant = "NA"
	VariantASIA    Variant = "ASIA"
	VariantGeneric Variant = "generic"
)

// DownloadLink is one candidate archive URL found on a mod page.
type DownloadLink struct {
	URL     string  `json:"url"`
	Variant Variant `json:"variant_tag"`
}

// ModRecord is the metadata parsed from one mod page.
type ModRecord struct {
	Title         string         `json:"title"`
	UpdatedAt     string         `json:"updated_at"`
	PatchVersion  string         `json:"patch_version"`
	DownloadLinks []DownloadLink `json:"download_links"`
}

// addLink appends link unless a link with the same URL is already known.
func (r *ModRecord) addLink(link DownloadLink) {
	for _, existing := range r.DownloadLinks {
		if existing.URL == link.URL {
			return
		}
	}
	r.DownloadLinks = append(r.DownloadLinks, link)
}

// ResultsList is the hand-off artifact between the parser and the fetcher.
type ResultsList []ModRecord

// LoadResults reads a results list previously written by SaveResults.
func LoadResults(path string) (ResultsList, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read results file")
	}

	var results ResultsList
	if err := json.Unmarshal(content, &results); err != nil {
		return nil, errors.Wrapf(err, "failed to decode results file %s", path)
	}

	return results, nil
}

// SaveResults overwrites path with results. The file is replaced atomically,
// so readers see either the previous list or the new one.
func SaveResults(path string, results ResultsList) error {
	// Never write `null` for an empty run or an empty link list
	out := make(ResultsList, len(results))
	copy(out, results)
	for i := range out {
		if out[i].DownloadLinks == nil {
			out[i].DownloadLinks = []DownloadLink{}
		}
	}

	content, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to encode results")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "failed to create results directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary results file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write results")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to write results")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to replace results file")
}
