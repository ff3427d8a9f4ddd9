package modpipe

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// DefaultJunkFiles are name patterns of installer scaffolding, shortcuts
// and readmes shipped inside mod archives.
var DefaultJunkFiles = []string{
	"*.url",
	"*.lnk",
	"*.exe",
	"*.msi",
	"*.nfo",
	"readme*",
	"read me*",
	"install*.txt",
	"установка*",
	"внимание*",
	"website*",
	"скачать лучшие моды*",
	"best mods*",
	".ds_store",
	"thumbs.db",
}

// DefaultJunkDirs are name patterns of directories that never belong to
// the client install: archiver metadata, the Lesta client variant and the
// alternative zoom scale sets.
var DefaultJunkDirs = []string{
	"__macosx",
	"lesta",
	"2 4 8 16",
	"2 4 8 12 16",
	"2 4 8 12 16 20 22 25 30",
}

// DefaultKeepRoots are game directories that are never flattened.
var DefaultKeepRoots = []string{
	"res_mods",
	"mods",
}

// Cleaner normalizes a freshly extracted archive into the shape the game
// client expects. Patterns are globs matched case-insensitively against
// base names.
type Cleaner struct {
	JunkFiles []string
	JunkDirs  []string
	KeepRoots []string

	// GameVersion, when set, moves loose objects/, scripts/ and *.wotmod
	// into the versioned res_mods and mods directories.
	GameVersion string

	isValidated bool
	junkFiles   []glob.Glob
	junkDirs    []glob.Glob
}

// Validate compiles the patterns of Cleaner, using the defaults for any
// list left nil.
func (c *Cleaner) Validate() error {
	if c.JunkFiles == nil {
		c.JunkFiles = DefaultJunkFiles
	}
	if c.JunkDirs == nil {
		c.JunkDirs = DefaultJunkDirs
	}
	if c.KeepRoots == nil {
		c.KeepRoots = DefaultKeepRoots
	}

	var err error
	if c.junkFiles, err = compilePatterns(c.JunkFiles); err != nil {
		return err
	}
	if c.junkDirs, err = compilePatterns(c.JunkDirs); err != nil {
		return err
	}

	c.isValidated = true
	return nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", pattern)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	name = strings.ToLower(name)
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Clean applies the cleanup rules to root, in order:
//  1. decode names stored in the DOS Cyrillic code page;
//  2. remove junk files and junk directories;
//  3. flatten a single top-level wrapper directory by one level;
//  4. remove empty directories;
//  5. relocate loose game content when GameVersion is set.
//
// The wrapper is decided from the extracted content before junk removal,
// ignoring junk directories, so an archive holding a readme next to a
// single folder keeps that folder.
func (c *Cleaner) Clean(root string) error {
	if !c.isValidated {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	if err := decodeNames(root); err != nil {
		return err
	}

	wrapper, err := c.findWrapper(root)
	if err != nil {
		return err
	}

	if err := c.removeJunk(root); err != nil {
		return err
	}

	if wrapper != "" {
		if err := c.collapse(root, wrapper); err != nil {
			return err
		}
	}

	if err := removeEmptyDirs(root, true); err != nil {
		return err
	}

	if c.GameVersion != "" {
		return c.relocate(root)
	}

	return nil
}

// decodeNames renames every entry below dir whose name isn't valid UTF-8,
// decoding it as CP866. ZIP archives packed on Russian Windows store names
// that way without flagging them.
func decodeNames(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	decoder := charmap.CodePage866.NewDecoder()
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if name := entry.Name(); !utf8.ValidString(name) {
			decoded, err := decoder.String(name)
			if err == nil && decoded != name {
				newPath := filepath.Join(dir, decoded)
				if !fileExists(newPath) {
					if err := os.Rename(path, newPath); err != nil {
						return err
					}
					path = newPath
				}
			}
		}

		if entry.IsDir() {
			if err := decodeNames(path); err != nil {
				return err
			}
		}
	}

	return nil
}

// findWrapper returns the name of the only top-level directory of root, or
// an empty string if root holds anything else.
func (c *Cleaner) findWrapper(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}

	var candidates []fs.DirEntry
	for _, entry := range entries {
		if entry.IsDir() && matchAny(c.junkDirs, entry.Name()) {
			continue
		}
		candidates = append(candidates, entry)
	}

	if len(candidates) != 1 || !candidates[0].IsDir() {
		return "", nil
	}

	name := candidates[0].Name()
	for _, keep := range c.KeepRoots {
		if strings.EqualFold(keep, name) {
			return "", nil
		}
	}

	return name, nil
}

func (c *Cleaner) removeJunk(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		if d.IsDir() {
			if matchAny(c.junkDirs, d.Name()) {
				if err := os.RemoveAll(path); err != nil {
					return err
				}
				return filepath.SkipDir
			}
			return nil
		}

		if matchAny(c.junkFiles, d.Name()) {
			return os.Remove(path)
		}

		return nil
	})
}

// collapse moves the content of root/wrapper into root and removes wrapper.
func (c *Cleaner) collapse(root, wrapper string) error {
	wrapperPath := filepath.Join(root, wrapper)
	if !isDirectory(wrapperPath) {
		return nil
	}

	// The wrapper may contain an entry with its own name
	tmpPath := filepath.Join(root, ".collapse-"+uuid.NewString())
	if err := os.Rename(wrapperPath, tmpPath); err != nil {
		return err
	}

	entries, err := os.ReadDir(tmpPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		src := filepath.Join(tmpPath, entry.Name())
		dst := filepath.Join(root, entry.Name())
		if err := movePath(src, dst); err != nil {
			return err
		}
	}

	return os.RemoveAll(tmpPath)
}

// removeEmptyDirs removes every empty directory below dir, deepest first.
// dir itself is kept when isRoot is set.
func removeEmptyDirs(dir string, isRoot bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			if err := removeEmptyDirs(filepath.Join(dir, entry.Name()), false); err != nil {
				return err
			}
		}
	}

	if isRoot {
		return nil
	}

	entries, err = os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return os.Remove(dir)
	}

	return nil
}

func (c *Cleaner) relocate(root string) error {
	resModsDir := filepath.Join(root, "res_mods", c.GameVersion)
	modsDir := filepath.Join(root, "mods", c.GameVersion)

	for _, name := range []string{"objects", "scripts"} {
		src := filepath.Join(root, name)
		if isDirectory(src) {
			if err := movePath(src, filepath.Join(resModsDir, name)); err != nil {
				return err
			}
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wotmod") {
			continue
		}

		src := filepath.Join(root, entry.Name())
		if err := movePath(src, filepath.Join(modsDir, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

// movePath moves src to dst. Directories are merged into an existing
// destination directory, files replace an existing destination file.
func movePath(src, dst string) error {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return err
	}

	dstInfo, err := os.Lstat(dst)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
			return err
		}
		return os.Rename(src, dst)

	case err != nil:
		return err

	case srcInfo.IsDir() && dstInfo.IsDir():
		entries, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			err := movePath(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name()))
			if err != nil {
				return err
			}
		}
		return os.Remove(src)

	default:
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
		return os.Rename(src, dst)
	}
}
