package pv

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	goio "io"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/comm"
	"github.com/cpmech/gomero/xdata"
)

// Encoder defines encoders; e.g. gob or json (fem/fileio.go's dual
// encoder/decoder abstraction, reused verbatim in idiom for per-rank PV/OV
// checkpoint records — SPEC_FULL.md's SUPPLEMENTED FEATURES).
type Encoder interface {
	Encode(e interface{}) error
}

// Decoder defines decoders; e.g. gob or json.
type Decoder interface {
	Decode(e interface{}) error
}

// GetEncoder returns a gob encoder unless enctype is "json".
func GetEncoder(w goio.Writer, enctype string) Encoder {
	if enctype == "json" {
		return json.NewEncoder(w)
	}
	return gob.NewEncoder(w)
}

// GetDecoder returns a gob decoder unless enctype is "json".
func GetDecoder(r goio.Reader, enctype string) Decoder {
	if enctype == "json" {
		return json.NewDecoder(r)
	}
	return gob.NewDecoder(r)
}

func pvRecordPath(folder, name string, rank int, enctype string) string {
	ext := "gob"
	if enctype == "json" {
		ext = "json"
	}
	return filepath.Join(folder, fmt.Sprintf("%s.r%04d.%s", name, rank, ext))
}

// partitionRecord is the on-disk shape of one Partition's persistent state:
// positions, velocities, ids, and every Persistent channel's flat data.
type partitionRecord struct {
	Pos       []r3.Vec
	Vel       []r3.Vec
	Id1       []uint32
	Id2       []uint32
	ChanNames []string
	ChanData  [][]float64
	ChanWidth []int
}

func recordOf(p *Partition) partitionRecord {
	names := p.Extra.PersistentNames()
	rec := partitionRecord{Pos: p.Pos, Vel: p.Vel, Id1: p.Id1, Id2: p.Id2, ChanNames: names}
	for _, name := range names {
		ch, _ := p.Extra.GetChannel(name)
		rec.ChanData = append(rec.ChanData, ch.Data)
		rec.ChanWidth = append(rec.ChanWidth, ch.Stride)
	}
	return rec
}

func applyRecord(p *Partition, rec partitionRecord) {
	p.Pos, p.Vel, p.Id1, p.Id2 = rec.Pos, rec.Vel, rec.Id1, rec.Id2
	p.Extra = xdata.NewManager(len(rec.Pos))
	for i, name := range rec.ChanNames {
		_ = p.Extra.CreateChannel(name, rec.ChanWidth[i], xdata.Persistent)
		ch, _ := p.Extra.GetChannel(name)
		copy(ch.Data, rec.ChanData[i])
	}
}

// Checkpoint writes this Vector's local partition, every rank its own
// file, to folder (spec.md §6: "components write and read their own
// state through uniform checkpoint(comm,folder) calls").
func (v *Vector) Checkpoint(c comm.Communicator, folder, enctype string) error {
	return writePartition(c, folder, v.VName, enctype, v.Local)
}

// Restart reads back a previously-written Checkpoint.
func (v *Vector) Restart(c comm.Communicator, folder, enctype string) error {
	rec, err := readPartition(c, folder, v.VName, enctype)
	if err != nil {
		return err
	}
	applyRecord(v.Local, rec)
	v.BumpMotion()
	return nil
}

// Checkpoint writes the ObjectVector's local particle and per-object
// channel state.
func (o *ObjectVector) Checkpoint(c comm.Communicator, folder, enctype string) error {
	if err := writePartition(c, folder, o.VName, enctype, o.Local); err != nil {
		return err
	}
	return writeObjChannels(c, folder, o.VName+".obj", enctype, o.ObjLocal)
}

// Restart reads back a previously-written Checkpoint.
func (o *ObjectVector) Restart(c comm.Communicator, folder, enctype string) error {
	rec, err := readPartition(c, folder, o.VName, enctype)
	if err != nil {
		return err
	}
	applyRecord(o.Local, rec)
	mgr, err := readObjChannels(c, folder, o.VName+".obj", enctype)
	if err != nil {
		return err
	}
	o.ObjLocal = mgr
	o.BumpMotion()
	return nil
}

func writePartition(c comm.Communicator, folder, name, enctype string, p *Partition) error {
	if err := os.MkdirAll(folder, 0775); err != nil {
		return chk.Err("pv.Checkpoint: cannot create folder %q: %v", folder, err)
	}
	var buf bytes.Buffer
	if err := GetEncoder(&buf, enctype).Encode(recordOf(p)); err != nil {
		return chk.Err("pv.Checkpoint: cannot encode %q: %v", name, err)
	}
	path := pvRecordPath(folder, name, c.Rank(), enctype)
	if err := os.WriteFile(path, buf.Bytes(), 0664); err != nil {
		return chk.Err("pv.Checkpoint: cannot write %q: %v", path, err)
	}
	return nil
}

func readPartition(c comm.Communicator, folder, name, enctype string) (partitionRecord, error) {
	path := pvRecordPath(folder, name, c.Rank(), enctype)
	data, err := os.ReadFile(path)
	if err != nil {
		return partitionRecord{}, chk.Err("pv.Restart: missing or unreadable record %q: %v", path, err)
	}
	var rec partitionRecord
	if err := GetDecoder(bytes.NewReader(data), enctype).Decode(&rec); err != nil {
		return partitionRecord{}, chk.Err("pv.Restart: malformed record %q: %v", path, err)
	}
	return rec, nil
}

// objChannelRecord is the on-disk shape of an ObjectVector's per-object
// channel manager.
type objChannelRecord struct {
	Count     int
	ChanNames []string
	ChanData  [][]float64
	ChanWidth []int
}

func writeObjChannels(c comm.Communicator, folder, name, enctype string, m *xdata.Manager) error {
	names := m.PersistentNames()
	rec := objChannelRecord{Count: m.Count(), ChanNames: names}
	for _, n := range names {
		ch, _ := m.GetChannel(n)
		rec.ChanData = append(rec.ChanData, ch.Data)
		rec.ChanWidth = append(rec.ChanWidth, ch.Stride)
	}
	var buf bytes.Buffer
	if err := GetEncoder(&buf, enctype).Encode(rec); err != nil {
		return chk.Err("pv.Checkpoint: cannot encode %q: %v", name, err)
	}
	path := pvRecordPath(folder, name, c.Rank(), enctype)
	if err := os.WriteFile(path, buf.Bytes(), 0664); err != nil {
		return chk.Err("pv.Checkpoint: cannot write %q: %v", path, err)
	}
	return nil
}

func readObjChannels(c comm.Communicator, folder, name, enctype string) (*xdata.Manager, error) {
	path := pvRecordPath(folder, name, c.Rank(), enctype)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, chk.Err("pv.Restart: missing or unreadable record %q: %v", path, err)
	}
	var rec objChannelRecord
	if err := GetDecoder(bytes.NewReader(data), enctype).Decode(&rec); err != nil {
		return nil, chk.Err("pv.Restart: malformed record %q: %v", path, err)
	}
	mgr := xdata.NewManager(rec.Count)
	for i, n := range rec.ChanNames {
		_ = mgr.CreateChannel(n, rec.ChanWidth[i], xdata.Persistent)
		ch, _ := mgr.GetChannel(n)
		copy(ch.Data, rec.ChanData[i])
	}
	return mgr, nil
}
