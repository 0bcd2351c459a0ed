// Package badger persists accumulated call-graph arcs between merge runs,
// so profile captures can be folded into a long-running aggregate instead
// of re-parsing every report on each invocation.
package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"strconv"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/rs/xid"
	"golang.org/x/xerrors"

	"github.com/hotsort/hotsort/pkg/log"
	"github.com/hotsort/hotsort/pkg/perfreport"
)

const (
	arcPrefix     byte = 1 << 7 // 0b10000000
	capturePrefix byte = 1 << 6 // 0b01000000
)

const keySep byte = '\xff'

type Storage struct {
	logger *log.Logger
	db     *badger.DB
}

func New(logger *log.Logger, db *badger.DB) *Storage {
	return &Storage{
		logger: logger,
		db:     db,
	}
}

// CaptureMeta records one imported report section.
type CaptureMeta struct {
	ID           string    `json:"id"`
	File         string    `json:"file"`
	Event        string    `json:"event"`
	TotalSamples int64     `json:"total_samples"`
	LostSamples  int64     `json:"lost_samples"`
	Rows         int       `json:"rows"`
	ImportedAt   time.Time `json:"imported_at"`
}

// ImportSection folds a report section into the aggregate: every row's
// sample count is added to the stored count of its (event, source, target)
// arc, and a capture entry records the import.
func (st *Storage) ImportSection(ctx context.Context, file string, s *perfreport.Section) (*CaptureMeta, error) {
	records := make(map[string]int64, len(s.Rows))
	for _, row := range s.Rows {
		samples, err := row.Int(perfreport.FieldSamples)
		if err != nil {
			return nil, xerrors.Errorf("badger: bad sample count in section %q: %w", s.Event, err)
		}
		key := createArcKey(s.Event, row.Value(perfreport.FieldSourceSymbol), row.Value(perfreport.FieldTargetSymbol))
		records[string(key)] += samples
	}

	meta := &CaptureMeta{
		ID:           xid.New().String(),
		File:         file,
		Event:        s.Event,
		TotalSamples: s.TotalSamples,
		LostSamples:  s.LostSamples,
		Rows:         len(s.Rows),
		ImportedAt:   time.Now().UTC(),
	}
	mk, mv, err := createCaptureKV(meta)
	if err != nil {
		return nil, xerrors.Errorf("badger: could not encode capture %v: %w", meta, err)
	}

	err = st.db.Update(func(txn *badger.Txn) error {
		for key, samples := range records {
			k := []byte(key)
			total, err := readCount(txn, k)
			if err != nil {
				return err
			}
			total += samples

			var val [8]byte
			binary.BigEndian.PutUint64(val[:], uint64(total))
			st.logger.Debugw("importSection: set arc", "event", s.Event, log.ByteString("key", k), "samples", total)
			if err := txn.Set(k, val[:]); err != nil {
				return xerrors.Errorf("could not write arc entry: %w", err)
			}
		}
		return txn.Set(mk, mv)
	})
	if err != nil {
		return nil, xerrors.Errorf("badger: import section %q: %w", s.Event, err)
	}

	return meta, nil
}

func readCount(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, xerrors.Errorf("could not read arc entry: %w", err)
	}
	var count int64
	err = item.Value(func(val []byte) error {
		count = int64(binary.BigEndian.Uint64(val))
		return nil
	})
	return count, err
}

// Report reconstructs the aggregated report from the store, one section
// per event. Lost-sample and event-count totals come from the capture
// entries; rows carry the accumulated arc samples.
func (st *Storage) Report(ctx context.Context) (*perfreport.Report, error) {
	captures, err := st.Captures(ctx)
	if err != nil {
		return nil, err
	}

	sections := make(map[string]*perfreport.Section)
	var events []string
	for _, meta := range captures {
		s := sections[meta.Event]
		if s == nil {
			s = &perfreport.Section{
				Event: meta.Event,
				Fields: []string{
					perfreport.FieldSamples,
					perfreport.FieldSourceSymbol,
					perfreport.FieldTargetSymbol,
				},
			}
			sections[meta.Event] = s
			events = append(events, meta.Event)
		}
		s.TotalSamples += meta.TotalSamples
		s.LostSamples += meta.LostSamples
	}

	err = st.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{arcPrefix}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			event, source, target, err := parseArcKey(item.Key())
			if err != nil {
				return err
			}

			var samples int64
			err = item.Value(func(val []byte) error {
				samples = int64(binary.BigEndian.Uint64(val))
				return nil
			})
			if err != nil {
				return xerrors.Errorf("could not read arc entry: %w", err)
			}

			s := sections[event]
			if s == nil {
				// arcs without a capture entry still belong to the report
				s = &perfreport.Section{
					Event: event,
					Fields: []string{
						perfreport.FieldSamples,
						perfreport.FieldSourceSymbol,
						perfreport.FieldTargetSymbol,
					},
				}
				sections[event] = s
				events = append(events, event)
			}
			s.Rows = append(s.Rows, perfreport.Row{
				perfreport.FieldSamples:      strconv.FormatInt(samples, 10),
				perfreport.FieldSourceSymbol: source,
				perfreport.FieldTargetSymbol: target,
			})
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("badger: export report: %w", err)
	}

	rep := &perfreport.Report{}
	for _, event := range events {
		rep.Sections = append(rep.Sections, sections[event])
	}
	return rep, nil
}

// Captures lists the recorded imports, oldest first.
func (st *Storage) Captures(ctx context.Context) ([]*CaptureMeta, error) {
	var captures []*CaptureMeta

	err := st.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte{capturePrefix}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			meta := &CaptureMeta{}
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, meta)
			})
			if err != nil {
				return xerrors.Errorf("could not decode capture entry: %w", err)
			}
			captures = append(captures, meta)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("badger: list captures: %w", err)
	}
	return captures, nil
}

// arc key arcPrefix<event><sep><source><sep><target>, value big-endian count
func createArcKey(event, source, target string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(arcPrefix)
	buf.WriteString(event)
	buf.WriteByte(keySep)
	buf.WriteString(source)
	buf.WriteByte(keySep)
	buf.WriteString(target)
	return buf.Bytes()
}

func parseArcKey(key []byte) (event, source, target string, err error) {
	if len(key) == 0 || key[0] != arcPrefix {
		return "", "", "", xerrors.Errorf("not an arc key: %x", key)
	}
	parts := bytes.Split(key[1:], []byte{keySep})
	if len(parts) != 3 {
		return "", "", "", xerrors.Errorf("malformed arc key: %x", key)
	}
	return string(parts[0]), string(parts[1]), string(parts[2]), nil
}

// capture key capturePrefix<xid>, value json-encoded meta
func createCaptureKV(meta *CaptureMeta) ([]byte, []byte, error) {
	key := make([]byte, 0, len(meta.ID)+1)
	key = append(key, capturePrefix)
	key = append(key, meta.ID...)

	val, err := json.Marshal(meta)

	return key, val, err
}
