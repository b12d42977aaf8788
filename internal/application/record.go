package application

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pelletier/go-toml/v2"

	"github.com/Tobito320/ryxsurf/internal/domain"
)

const recordFormatVersion = 1

const maxDecodedRecordBytes = 64 << 20

// treeRecord is the plaintext inside the encrypted blob. It keeps the
// relational shape of the tree: one row list per table, children pointing at
// their parent and ordered by position.
type treeRecord struct {
	Version          int            `toml:"version"`
	SavedAt          string         `toml:"saved_at"`
	CurrentWorkspace int            `toml:"current_workspace"`
	Workspaces       []workspaceRow `toml:"workspaces"`
	Sessions         []sessionRow   `toml:"sessions"`
	Tabs             []tabRow       `toml:"tabs"`
}

type workspaceRow struct {
	ID                 string `toml:"id"`
	Name               string `toml:"name"`
	Position           int    `toml:"position"`
	ActiveSessionIndex int    `toml:"active_session_index"`
	CreatedAt          string `toml:"created_at"`
	UpdatedAt          string `toml:"updated_at"`
}

type sessionRow struct {
	ID             string `toml:"id"`
	WorkspaceID    string `toml:"workspace_id"`
	Name           string `toml:"name"`
	Position       int    `toml:"position"`
	IsOverview     bool   `toml:"is_overview"`
	ActiveTabIndex int    `toml:"active_tab_index"`
	CreatedAt      string `toml:"created_at"`
	UpdatedAt      string `toml:"updated_at"`
}

type tabRow struct {
	ID                  string `toml:"id"`
	SessionID           string `toml:"session_id"`
	URL                 string `toml:"url"`
	Title               string `toml:"title"`
	Position            int    `toml:"position"`
	LastActiveWallClock string `toml:"last_active_wall_clock,omitempty"`
	SnapshotRef         string `toml:"snapshot_ref,omitempty"`
}

func newTreeRecord(state domain.TreeState, savedAt time.Time) treeRecord {
	record := treeRecord{
		Version:          recordFormatVersion,
		SavedAt:          formatTime(savedAt),
		CurrentWorkspace: state.CurrentIndex,
	}

	for wi, workspace := range state.Workspaces {
		record.Workspaces = append(record.Workspaces, workspaceRow{
			ID:                 workspace.ID,
			Name:               workspace.Name,
			Position:           wi,
			ActiveSessionIndex: workspace.ActiveIndex,
			CreatedAt:          formatTime(workspace.CreatedAt),
			UpdatedAt:          formatTime(workspace.UpdatedAt),
		})
		for si, session := range workspace.Sessions {
			record.Sessions = append(record.Sessions, sessionRow{
				ID:             session.ID,
				WorkspaceID:    workspace.ID,
				Name:           session.Name,
				Position:       si,
				IsOverview:     session.Overview,
				ActiveTabIndex: session.ActiveIndex,
				CreatedAt:      formatTime(session.CreatedAt),
				UpdatedAt:      formatTime(session.UpdatedAt),
			})
			for ti, tab := range session.Tabs {
				record.Tabs = append(record.Tabs, tabRow{
					ID:                  tab.ID,
					SessionID:           session.ID,
					URL:                 tab.URL,
					Title:               tab.Title,
					Position:            ti,
					LastActiveWallClock: formatTime(tab.LastActive),
					SnapshotRef:         tab.SnapshotRef,
				})
			}
		}
	}

	return record
}

// emptyTreeRecord stands for the untouched default tree.
func emptyTreeRecord(savedAt time.Time) treeRecord {
	return treeRecord{Version: recordFormatVersion, SavedAt: formatTime(savedAt)}
}

// State rebuilds the tree state. An empty record yields ok=false.
func (r treeRecord) State() (domain.TreeState, bool, error) {
	if r.Version != recordFormatVersion {
		return domain.TreeState{}, false, fmt.Errorf("%w: %d", ErrUnsupportedFormat, r.Version)
	}
	if len(r.Workspaces) == 0 {
		return domain.TreeState{}, false, nil
	}

	sessionsByWorkspace := map[string][]sessionRow{}
	for _, row := range r.Sessions {
		sessionsByWorkspace[row.WorkspaceID] = append(sessionsByWorkspace[row.WorkspaceID], row)
	}
	tabsBySession := map[string][]tabRow{}
	for _, row := range r.Tabs {
		tabsBySession[row.SessionID] = append(tabsBySession[row.SessionID], row)
	}

	workspaces := sortedByPosition(r.Workspaces, func(row workspaceRow) int { return row.Position })
	state := domain.TreeState{
		CurrentIndex: r.CurrentWorkspace,
		Workspaces:   make([]domain.WorkspaceState, 0, len(workspaces)),
	}

	sessionCount, tabCount := 0, 0
	for _, wr := range workspaces {
		workspace := domain.WorkspaceState{
			ID:          wr.ID,
			Name:        wr.Name,
			ActiveIndex: wr.ActiveSessionIndex,
			CreatedAt:   parseTime(wr.CreatedAt),
			UpdatedAt:   parseTime(wr.UpdatedAt),
		}

		sessions := sortedByPosition(sessionsByWorkspace[wr.ID], func(row sessionRow) int { return row.Position })
		sessionCount += len(sessions)
		for _, sr := range sessions {
			session := domain.SessionState{
				ID:          sr.ID,
				Name:        sr.Name,
				Overview:    sr.IsOverview,
				ActiveIndex: sr.ActiveTabIndex,
				CreatedAt:   parseTime(sr.CreatedAt),
				UpdatedAt:   parseTime(sr.UpdatedAt),
				Tabs:        []domain.TabState{},
			}

			tabs := sortedByPosition(tabsBySession[sr.ID], func(row tabRow) int { return row.Position })
			tabCount += len(tabs)
			for _, tr := range tabs {
				session.Tabs = append(session.Tabs, domain.TabState{
					ID:          tr.ID,
					URL:         tr.URL,
					Title:       tr.Title,
					LastActive:  parseTime(tr.LastActiveWallClock),
					SnapshotRef: tr.SnapshotRef,
				})
			}
			workspace.Sessions = append(workspace.Sessions, session)
		}
		state.Workspaces = append(state.Workspaces, workspace)
	}

	if sessionCount != len(r.Sessions) || tabCount != len(r.Tabs) {
		return domain.TreeState{}, false, fmt.Errorf("record has orphaned rows: %w", domain.ErrInvalidTree)
	}

	return state, true, nil
}

func sortedByPosition[T any](rows []T, position func(T) int) []T {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return cmp.Compare(position(a), position(b))
	})
	return sorted
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedRecordBytes))
	})
)

// encodeRecord serializes and compresses a record.
func encodeRecord(record treeRecord) ([]byte, error) {
	plain, err := toml.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode tree record: %w", err)
	}

	encoder, err := zstdEncoder()
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return encoder.EncodeAll(plain, make([]byte, 0, len(plain)/2)), nil
}

func decodeRecord(compressed []byte) (treeRecord, error) {
	decoder, err := zstdDecoder()
	if err != nil {
		return treeRecord{}, fmt.Errorf("create zstd decoder: %w", err)
	}

	plain, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return treeRecord{}, fmt.Errorf("decompress tree record: %w", err)
	}

	var record treeRecord
	if err := toml.Unmarshal(plain, &record); err != nil {
		return treeRecord{}, fmt.Errorf("decode tree record: %w", err)
	}

	return record, nil
}
