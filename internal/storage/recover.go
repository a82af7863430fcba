package storage

import (
	"path/filepath"
	"sort"

	"github.com/iamNilotpal/ignitedb/internal/codec"
	"github.com/iamNilotpal/ignitedb/internal/datafile"
	"github.com/iamNilotpal/ignitedb/pkg/datafilename"
	"github.com/iamNilotpal/ignitedb/pkg/filesys"
)

func pathExists(path string) (bool, error) {
	return filesys.Exists(path)
}

// rebuildIndex populates the index from the fast-path hint file, then walks
// every data file's tail (archived files in ascending id order, then the
// active file last) applying each record in turn. Records tagged as part of
// an in-flight batch are buffered until that batch's Finish sentinel is
// seen, even when rotation put the sentinel in a later file; a batch still
// missing its Finish record once the last file is scanned was interrupted by
// a crash and is discarded entirely, per spec.
func (s *Storage) rebuildIndex(dbPath string, archivedIDs []uint32, activeID uint32) error {
	if err := s.loadHintFile(dbPath); err != nil {
		return err
	}

	ids := append([]uint32(nil), archivedIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	ids = append(ids, activeID)

	batches := make(map[uint64][]pendingRecord)
	for _, id := range ids {
		offset, err := s.applyDataFile(id, batches)
		if err != nil {
			return err
		}
		if id == activeID {
			s.activeFile.WriteOffset = offset
		}
	}

	return nil
}

func (s *Storage) loadHintFile(dbPath string) error {
	hintPath := filepath.Join(dbPath, datafilename.HintFileName)
	exists, err := pathExists(hintPath)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	hint, err := datafile.OpenHintFile(dbPath)
	if err != nil {
		return err
	}
	defer hint.Close()

	var offset int64
	for {
		rec, size, err := hint.ReadAt(offset)
		if err != nil {
			break
		}
		pos, err := codec.DecodeRecordPosition(rec.Value)
		if err != nil {
			return err
		}
		s.index.Put(rec.Key, pos)
		offset += int64(size)
	}
	return nil
}

// applyDataFile replays file id's records onto the index, buffering
// batched records by sequence number in batches (shared across every file
// of the scan) until their Finish sentinel lands, and returns the offset
// immediately past the last record it could fully decode (the file's true
// end-of-data).
func (s *Storage) applyDataFile(id uint32, batches map[uint64][]pendingRecord) (int64, error) {
	f, err := s.dataFileByID(id)
	if err != nil {
		return 0, err
	}

	var offset int64

	for {
		rec, size, err := f.ReadAt(offset)
		if err != nil {
			break
		}
		pos := codec.RecordPosition{FileID: id, Offset: uint64(offset), Size: size}

		switch rec.Batch.Tag {
		case codec.TagEnable:
			seq := rec.Batch.Seq
			batches[seq] = append(batches[seq], pendingRecord{rec: rec, pos: pos})
			if seq > s.batchSeq.Load() {
				s.batchSeq.Store(seq)
			}
		case codec.TagFinish:
			seq := rec.Batch.Seq
			for _, pr := range batches[seq] {
				s.applyRecord(pr.rec, pr.pos)
			}
			delete(batches, seq)
			if seq > s.batchSeq.Load() {
				s.batchSeq.Store(seq)
			}
		default:
			s.applyRecord(rec, pos)
		}

		offset += int64(size)
	}

	return offset, nil
}

type pendingRecord struct {
	rec *codec.Record
	pos codec.RecordPosition
}

func (s *Storage) applyRecord(rec *codec.Record, pos codec.RecordPosition) {
	switch rec.Type {
	case codec.RecordDeleted:
		if prev, err := s.index.Delete(rec.Key); err == nil {
			s.reclaimable.Add(uint64(prev.Size))
		}
	default:
		if prev, had := s.index.Put(rec.Key, pos); had {
			s.reclaimable.Add(uint64(prev.Size))
		}
	}
}

func (s *Storage) dataFileByID(id uint32) (*datafile.DataFile, error) {
	if s.activeFile != nil && id == s.activeFile.ID {
		return s.activeFile, nil
	}
	if f, ok := s.archivedFiles[id]; ok {
		return f, nil
	}
	return datafile.Open(s.opts.DataDir, id)
}
