package modpipe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// stagingPrefix names the per-archive working directories inside the
// output root. They are renamed into place once an archive is organized.
const stagingPrefix = ".staging-"

// Unpacker extracts every downloaded archive into its own folder of the
// organized output root.
type Unpacker struct {
	DownloadsDir string
	OutputDir    string
	Extractors   []Extractor
	Cleaner      *Cleaner

	EnableLog        bool
	EnableVerboseLog bool

	isValidated bool
}

// Validate prepares Unpacker to make sure its configurations
// are valid and ready to use. Must be run at least once before
// unpacking started.
func (u *Unpacker) Validate() error {
	if u.DownloadsDir == "" {
		return fmt.Errorf("downloads directory is not specified")
	}

	if u.OutputDir == "" {
		return fmt.Errorf("output directory is not specified")
	}

	if len(u.Extractors) == 0 {
		u.Extractors = DefaultExtractors
	}

	if u.Cleaner == nil {
		u.Cleaner = &Cleaner{}
	}
	if err := u.Cleaner.Validate(); err != nil {
		return err
	}

	u.isValidated = true
	return nil
}

// FolderName returns the name of the organized folder for an archive: its
// file name without the extension, if that extension belongs to one of
// extractors. Any other dot in the name is part of the folder name.
func FolderName(archivePath string, extractors []Extractor) string {
	if len(extractors) == 0 {
		extractors = DefaultExtractors
	}

	base := filepath.Base(archivePath)
	ext := filepath.Ext(base)
	for _, extractor := range extractors {
		if extractor.MatchExtension(strings.ToLower(ext)) {
			return strings.TrimSuffix(base, ext)
		}
	}

	return base
}

// Archives lists the files of the downloads directory that are candidates
// for unpacking, sorted by name. Directories, hidden files and unfinished
// downloads are left out.
func (u *Unpacker) Archives() ([]string, error) {
	entries, err := os.ReadDir(u.DownloadsDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read downloads directory")
	}

	var archives []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasSuffix(name, partSuffix) {
			continue
		}
		archives = append(archives, filepath.Join(u.DownloadsDir, name))
	}

	sort.Strings(archives)
	return archives, nil
}

// Unpack extracts and organizes the archive at archivePath. It reports
// skipped when the organized folder already exists. On failure nothing is
// left in the output root. Returned errors are *ItemError.
func (u *Unpacker) Unpack(ctx context.Context, archivePath string) (skipped bool, err error) {
	if !u.isValidated {
		return false, fmt.Errorf("unpacker hasn't been validated")
	}

	fileName := filepath.Base(archivePath)
	name := FolderName(archivePath, u.Extractors)
	if name == "" {
		return false, itemError(KindArchive, fileName, fmt.Errorf("can't derive folder name"))
	}

	dstPath := filepath.Join(u.OutputDir, name)
	if fileExists(dstPath) {
		return true, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	extractor, err := DetectExtractor(archivePath, u.Extractors)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return false, itemError(KindArchive, fileName, err)
		}
		return false, itemError(KindFilesystem, fileName, err)
	}

	fields := logrus.Fields{"file": fileName, "format": extractor.Format()}
	logf(u.EnableLog, fields, "unpacking into %s", dstPath)

	stagingPath := filepath.Join(u.OutputDir, stagingPrefix+uuid.NewString())
	defer os.RemoveAll(stagingPath)

	if err := os.MkdirAll(stagingPath, os.ModePerm); err != nil {
		return false, itemError(KindFilesystem, fileName, err)
	}

	if err := extractor.Extract(archivePath, stagingPath); err != nil {
		return false, itemError(KindArchive, fileName, errors.Wrapf(err, "failed to extract %s archive", extractor.Format()))
	}

	if err := u.Cleaner.Clean(stagingPath); err != nil {
		return false, itemError(KindFilesystem, fileName, errors.Wrap(err, "failed to clean up extracted files"))
	}

	if err := os.Rename(stagingPath, dstPath); err != nil {
		return false, itemError(KindFilesystem, fileName, err)
	}

	debugf(u.EnableVerboseLog, fields, "organized into %s", dstPath)
	return false, nil
}

// removeStaleStaging deletes working directories left behind by an
// interrupted run.
func (u *Unpacker) removeStaleStaging() error {
	entries, err := os.ReadDir(u.OutputDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), stagingPrefix) {
			path := filepath.Join(u.OutputDir, entry.Name())
			debugf(u.EnableVerboseLog, logrus.Fields{"file": path}, "removing stale staging directory")
			if err := os.RemoveAll(path); err != nil {
				return err
			}
		}
	}

	return nil
}

// Run unpacks every archive of the downloads directory. Only an unreadable
// downloads directory or an unusable output root is returned as error;
// failed archives are logged and counted.
func (u *Unpacker) Run(ctx context.Context) (Summary, error) {
	summary := newSummary("unpack")

	if !u.isValidated {
		if err := u.Validate(); err != nil {
			return summary, err
		}
	}

	archives, err := u.Archives()
	if err != nil {
		return summary, err
	}

	if err := os.MkdirAll(u.OutputDir, os.ModePerm); err != nil {
		return summary, errors.Wrap(err, "failed to create output directory")
	}

	if err := u.removeStaleStaging(); err != nil {
		return summary, errors.Wrap(err, "failed to clean output directory")
	}

	for _, archivePath := range archives {
		fields := logrus.Fields{"file": filepath.Base(archivePath)}

		skipped, err := u.Unpack(ctx, archivePath)
		switch {
		case errors.Is(err, ErrUnsupportedFormat):
			logFailure(err, fields)
			summary.skip()
		case err != nil:
			logFailure(err, fields)
			summary.fail(err)
		case skipped:
			debugf(u.EnableVerboseLog, fields, "already unpacked")
			summary.skip()
		default:
			summary.succeed()
		}
	}

	return summary, nil
}
