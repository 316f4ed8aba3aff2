package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/franz/safetube/internal/store"
	"github.com/franz/safetube/internal/util"
	"github.com/google/uuid"
)

// VideoExtensions are the supported video file extensions
var VideoExtensions = []string{
	".mp4",
	".m4v",
	".mkv",
	".webm",
	".mov",
	".avi",
	".wmv",
	".mpg",
	".mpeg",
	".flv",
}

// Scanner discovers video files under a local source's directory and
// mirrors them into the videos table
type Scanner struct {
	store      *store.Store
	extensions map[string]bool
}

// New creates a Scanner backed by the given store
func New(st *store.Store) *Scanner {
	extMap := make(map[string]bool, len(VideoExtensions))
	for _, ext := range VideoExtensions {
		extMap[strings.ToLower(ext)] = true
	}
	return &Scanner{store: st, extensions: extMap}
}

// Result summarizes one scan pass
type Result struct {
	Discovered  int
	Refreshed   int
	Unavailable int
	Errors      []error
}

// ScanSource walks a local source's directory up to its max depth and
// upserts one video row per file found. Files that vanished since the last
// pass are flagged unavailable rather than deleted, so view history
// survives an unplugged drive. The cached total-video count on the source
// is refreshed at the end.
func (s *Scanner) ScanSource(ctx context.Context, src *store.Source, progress func(found int)) (*Result, error) {
	if src.Type != "local" {
		return nil, fmt.Errorf("source %s is not a local source: %w", src.ID, util.ErrInvalidConfig)
	}
	root, err := filepath.Abs(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source path: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("source directory inaccessible: %w", err)
	}

	util.InfoLog("Scanning local source %q: %s", src.Title, root)

	result := &Result{}
	seen := make(map[string]bool)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			util.WarnLog("Error accessing path %s: %v", path, err)
			result.Errors = append(result.Errors, fmt.Errorf("access error: %s: %w", path, err))
			return nil
		}

		if d.IsDir() {
			if src.MaxDepth > 0 && pathDepth(root, path) >= src.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}

		if !s.isVideoFile(path) {
			return nil
		}

		seen[path] = true
		isNew, err := s.upsertFile(ctx, src, path)
		if err != nil {
			util.ErrorLog("Failed to process %s: %v", path, err)
			result.Errors = append(result.Errors, err)
			return nil
		}
		if isNew {
			result.Discovered++
		} else {
			result.Refreshed++
		}
		if progress != nil {
			progress(result.Discovered + result.Refreshed)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk error: %w", err)
	}

	// Flag rows whose files are gone
	existing, err := s.store.ListVideosBySource(ctx, src.ID, "alphabetical")
	if err != nil {
		return result, err
	}
	for _, v := range existing {
		if v.URL == "" || seen[v.URL] || !v.IsAvailable {
			continue
		}
		if err := s.store.SetVideoAvailability(ctx, v.ID, false); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Unavailable++
	}

	if err := s.store.UpdateSourceVideoCount(ctx, src.ID); err != nil {
		return result, err
	}

	util.SuccessLog("Scan complete: %d new, %d refreshed, %d unavailable, %d errors",
		result.Discovered, result.Refreshed, result.Unavailable, len(result.Errors))
	return result, nil
}

// upsertFile inserts or refreshes the video row for one file. Returns true
// when the file was new to the source.
func (s *Scanner) upsertFile(ctx context.Context, src *store.Source, path string) (bool, error) {
	existing, err := s.store.GetVideoByURL(ctx, src.ID, path)
	if err != nil {
		return false, err
	}

	video := &store.Video{
		Title:       titleForFile(path),
		URL:         path,
		IsAvailable: true,
		SourceID:    src.ID,
	}
	if existing != nil {
		video.ID = existing.ID
		video.Description = existing.Description
		video.Thumbnail = existing.Thumbnail
		video.Duration = existing.Duration
		video.PublishedAt = existing.PublishedAt
	} else {
		video.ID = uuid.NewString()
	}

	if err := s.store.UpsertVideo(ctx, video); err != nil {
		return false, err
	}

	util.DebugLog("Discovered: %s (id: %s)", path, video.ID[:8])
	return existing == nil, nil
}

// titleForFile prefers the title embedded in MP4 metadata atoms and falls
// back to the cleaned-up file name
func titleForFile(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".mp4" || ext == ".m4v" || ext == ".mov" {
		if f, err := os.Open(path); err == nil {
			m, err := tag.ReadFrom(f)
			f.Close()
			if err == nil && strings.TrimSpace(m.Title()) != "" {
				return strings.TrimSpace(m.Title())
			}
		}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.NewReplacer("_", " ", ".", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

func (s *Scanner) isVideoFile(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// pathDepth counts directory levels between root and path
func pathDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
