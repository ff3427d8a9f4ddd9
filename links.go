package modpipe

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadLinks reads the list of mod page URLs from path.
//
// The file is either a plain list of URLs or a mapping of category name to
// a list of URLs. Categories are flattened in the order they appear in the
// file. JSON files are accepted as well since JSON is valid YAML. Files
// with a ".txt" extension hold one URL per line.
func LoadLinks(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		return parseInputFile(path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read links file")
	}

	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, errors.Wrapf(err, "failed to decode links file %s", path)
	}

	// Empty document
	if len(root.Content) == 0 {
		return []string{}, nil
	}

	doc := root.Content[0]
	var links []string

	switch doc.Kind {
	case yaml.SequenceNode:
		links, err = decodeLinkList(doc)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid links file %s", path)
		}

	case yaml.MappingNode:
		// Content holds key and value nodes alternately
		for i := 0; i+1 < len(doc.Content); i += 2 {
			category := doc.Content[i].Value
			categoryLinks, err := decodeLinkList(doc.Content[i+1])
			if err != nil {
				return nil, errors.Wrapf(err, "invalid category %q in links file %s", category, path)
			}
			links = append(links, categoryLinks...)
		}

	default:
		return nil, errors.Errorf("links file %s must contain a list or a mapping of lists", path)
	}

	if links == nil {
		links = []string{}
	}
	return links, nil
}

func decodeLinkList(node *yaml.Node) ([]string, error) {
	var raw []string
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}

	links := make([]string, 0, len(raw))
	for _, link := range raw {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		links = append(links, link)
	}

	return links, nil
}

func parseInputFile(path string) ([]string, error) {
	// Open file
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read links file")
	}
	defer f.Close()

	// Fetch each line from file
	urls := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		urls = append(urls, text)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read links file %s", path)
	}

	return urls, nil
}
