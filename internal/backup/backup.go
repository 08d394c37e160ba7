// Package backup archives project directories, full git history included,
// and optionally seals them with a passphrase and uploads them to object
// storage.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Info describes one archive in the backup directory.
type Info struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Sealed    bool      `json:"sealed"`
	Uploaded  bool      `json:"uploaded"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service creates and lists project backups.
type Service struct {
	dataDir    string
	backupDir  string
	uploader   *Uploader
	passphrase string
}

// NewService creates a backup service. uploader may be nil when object
// storage is not configured; an empty passphrase disables sealing.
func NewService(dataDir, backupDir string, uploader *Uploader, passphrase string) *Service {
	return &Service{
		dataDir:    dataDir,
		backupDir:  backupDir,
		uploader:   uploader,
		passphrase: passphrase,
	}
}

// CreateProject archives one project directory. Chat workspaces are skipped;
// .git is included so a restored project keeps its full history.
func (s *Service) CreateProject(ctx context.Context, projectID string) (Info, error) {
	src := filepath.Join(s.dataDir, projectID)
	if _, err := os.Stat(src); err != nil {
		return Info{}, fmt.Errorf("project dir: %w", err)
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return Info{}, fmt.Errorf("create backup dir: %w", err)
	}

	// Millisecond stamp keeps rapid consecutive backups from colliding.
	stamp := time.Now().UTC().Format("20060102-150405.000")
	name := fmt.Sprintf("%s-%s.tar.gz", projectID, stamp)
	path := filepath.Join(s.backupDir, name)

	if err := writeArchive(ctx, path, src, projectID); err != nil {
		os.Remove(path)
		return Info{}, err
	}

	sealed := false
	if s.passphrase != "" {
		sealedPath := path + ".enc"
		if err := sealFile(path, sealedPath, s.passphrase); err != nil {
			os.Remove(path)
			os.Remove(sealedPath)
			return Info{}, err
		}
		os.Remove(path)
		name += ".enc"
		path = sealedPath
		sealed = true
	}

	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat archive: %w", err)
	}

	uploaded := false
	if s.uploader != nil {
		if err := s.uploader.Upload(ctx, path, name); err != nil {
			log.Printf("backup: upload %s: %v", name, err)
		} else {
			uploaded = true
		}
	}

	return Info{
		Name:      name,
		Size:      fi.Size(),
		Sealed:    sealed,
		Uploaded:  uploaded,
		CreatedAt: fi.ModTime().UTC(),
	}, nil
}

// List returns local backups, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".tar.gz") && !strings.HasSuffix(name, ".tar.gz.enc") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:      name,
			Size:      fi.Size(),
			Sealed:    strings.HasSuffix(name, ".enc"),
			CreatedAt: fi.ModTime().UTC(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

// ListRemote returns object names uploaded for a project, or nil when no
// uploader is configured.
func (s *Service) ListRemote(ctx context.Context, projectID string) ([]string, error) {
	if s.uploader == nil {
		return nil, nil
	}
	return s.uploader.ListRemote(ctx, projectID+"-")
}
