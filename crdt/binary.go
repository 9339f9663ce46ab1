package crdt

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Tags. These are the one-byte type identifiers ToBinary prefixes every
// blob with, chosen to match the reference implementation's own wire
// tags rather than Go iota defaults, so a blob's type is self-evident
// without decoding its payload.
const (
	tagORSWOT byte = 75
	tagFlag   byte = 73
	tagMap    byte = 101
)

// binaryVersion is the one-byte version identifier following the type
// tag. All current types are version 1.
const binaryVersion byte = 1

// gzipMagic is the two leading bytes of any gzip stream, used to detect
// a compressed payload independent of the caller's current compression
// setting.
var gzipMagic = [2]byte{0x1f, 0x8b}

// CompressionSetting is the single process-level switch controlling
// whether ToBinary compresses its output, per the reference
// implementation's "enabled (default) / disabled / 0-9 level" knob. The
// values 0-9 mirror compress/gzip's own level constants directly.
type CompressionSetting int32

// Compression settings. CompressionDefault requests gzip's own default
// trade-off; CompressionDisabled skips compression entirely; any value
// 0-9 (see compress/gzip's NoCompression/BestSpeed/BestCompression) asks
// for that exact level.
const (
	CompressionDefault  CompressionSetting = gzip.DefaultCompression
	CompressionDisabled CompressionSetting = -2
)

// compressionSetting holds the process-wide compression knob. It is the
// only process-wide parameter this package defines; everything else is a
// pure value. Accessed atomically since ToBinary may be called
// concurrently from multiple goroutines even though CRDT values
// themselves are not safe for concurrent mutation.
var compressionSetting int32 = int32(CompressionDefault)

// SetCompression sets the process-wide compression knob applied by every
// subsequent call to ToBinary.
func SetCompression(c CompressionSetting) {
	atomic.StoreInt32(&compressionSetting, int32(c))
}

// Compression returns the process-wide compression knob currently in
// effect.
func Compression() CompressionSetting {
	return CompressionSetting(atomic.LoadInt32(&compressionSetting))
}

// Wire snapshots. These exist because ORSWOT, Flag and Map keep their
// state in unexported fields (so a caller cannot accidentally violate
// their invariants by poking at them directly); gob can only walk
// exported fields, so encoding goes through these plain, exported
// mirrors instead of the live types.

type orswotWire struct {
	Clock   VV
	Entries map[Element][]Dot
}

type flagWire struct {
	Clock   VV
	Enabled []Dot
}

type mapEntryWire struct {
	FieldName string
	FieldKind Kind
	Dot       Dot
	Value     valueWire
}

type mapWire struct {
	Clock   VV
	Entries []mapEntryWire
}

// valueWire is a tagged union mirroring crdt.Kind, used to snapshot a
// Map field's nested CRDT without registering concrete types with gob.
type valueWire struct {
	Kind   Kind
	ORSWOT *orswotWire
	Flag   *flagWire
	Map    *mapWire
}

func snapshotORSWOT(s *ORSWOT) *orswotWire {
	w := &orswotWire{
		Clock:   s.clock.Clone(),
		Entries: make(map[Element][]Dot, len(s.entries)),
	}
	for e, ds := range s.entries {
		dots := make([]Dot, 0, len(ds))
		for d := range ds {
			dots = append(dots, d)
		}
		w.Entries[e] = dots
	}
	return w
}

func rebuildORSWOT(w *orswotWire) *ORSWOT {
	s := &ORSWOT{
		clock:   w.Clock.Clone(),
		entries: make(map[Element]DotSet, len(w.Entries)),
	}
	for e, dots := range w.Entries {
		s.entries[e] = NewDotSet(dots...)
	}
	return s
}

func snapshotFlag(f *Flag) *flagWire {
	dots := make([]Dot, 0, len(f.enabled))
	for d := range f.enabled {
		dots = append(dots, d)
	}
	return &flagWire{Clock: f.clock.Clone(), Enabled: dots}
}

func rebuildFlag(w *flagWire) *Flag {
	return &Flag{clock: w.Clock.Clone(), enabled: NewDotSet(w.Enabled...)}
}

func snapshotValue(v CRDT) valueWire {
	switch t := v.(type) {
	case *ORSWOT:
		return valueWire{Kind: KindORSWOT, ORSWOT: snapshotORSWOT(t)}
	case *Flag:
		return valueWire{Kind: KindFlag, Flag: snapshotFlag(t)}
	case *Map:
		return valueWire{Kind: KindMap, Map: snapshotMap(t)}
	default:
		panic("crdt: unsupported nested CRDT kind")
	}
}

func rebuildValueWire(w valueWire) CRDT {
	switch w.Kind {
	case KindORSWOT:
		return rebuildORSWOT(w.ORSWOT)
	case KindFlag:
		return rebuildFlag(w.Flag)
	case KindMap:
		return rebuildMap(w.Map)
	default:
		panic("crdt: unsupported nested CRDT kind")
	}
}

func snapshotMap(m *Map) *mapWire {
	w := &mapWire{Clock: m.clock.Clone(), Entries: make([]mapEntryWire, 0, len(m.entries))}
	for d, ev := range m.entries {
		w.Entries = append(w.Entries, mapEntryWire{
			FieldName: ev.Field.Name,
			FieldKind: ev.Field.Kind,
			Dot:       d,
			Value:     snapshotValue(ev.Value),
		})
	}
	return w
}

func rebuildMap(w *mapWire) *Map {
	m := &Map{clock: w.Clock.Clone(), entries: make(map[Dot]mapEntryValue, len(w.Entries))}
	for _, ew := range w.Entries {
		m.entries[ew.Dot] = mapEntryValue{
			Field: Field{Name: ew.FieldName, Kind: ew.FieldKind},
			Value: rebuildValueWire(ew.Value),
		}
	}
	return m
}

// ToBinary produces a self-identifying blob: a one-byte type tag, a
// one-byte version (1, for every current type), and a gob-encoded
// snapshot of v's state, gzip-compressed according to the process-wide
// Compression setting.
func ToBinary(v CRDT) ([]byte, error) {
	var tag byte
	var wire interface{}

	switch t := v.(type) {
	case *ORSWOT:
		tag, wire = tagORSWOT, snapshotORSWOT(t)
	case *Flag:
		tag, wire = tagFlag, snapshotFlag(t)
	case *Map:
		tag, wire = tagMap, snapshotMap(t)
	default:
		return nil, errors.Errorf("crdt: unsupported CRDT type %T", v)
	}

	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(wire); err != nil {
		return nil, errors.Wrap(err, "crdt: encoding state")
	}
	payload := encoded.Bytes()

	if c := Compression(); c != CompressionDisabled {
		var compressed bytes.Buffer
		gz, err := gzip.NewWriterLevel(&compressed, int(c))
		if err != nil {
			return nil, errors.Wrap(err, "crdt: initializing compressor")
		}
		if _, err := gz.Write(payload); err != nil {
			return nil, errors.Wrap(err, "crdt: compressing state")
		}
		if err := gz.Close(); err != nil {
			return nil, errors.Wrap(err, "crdt: closing compressor")
		}
		payload = compressed.Bytes()
	}

	out := make([]byte, 0, 2+len(payload))
	out = append(out, tag, binaryVersion)
	out = append(out, payload...)
	return out, nil
}

// FromBinary is the inverse of ToBinary. It rejects blobs whose first
// two bytes do not name a known type tag and version, and transparently
// gzip-decompresses the payload when it is gzip-framed, independent of
// the caller's current Compression setting.
func FromBinary(data []byte) (CRDT, error) {
	if len(data) < 2 {
		return nil, errors.Wrap(ErrMalformed, "blob shorter than tag+version prefix")
	}

	tag, version := data[0], data[1]
	if version != binaryVersion {
		return nil, errors.Wrapf(ErrMalformed, "unknown version byte %d", version)
	}

	payload := data[2:]
	if len(payload) >= 2 && payload[0] == gzipMagic[0] && payload[1] == gzipMagic[1] {
		gz, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, "opening gzip payload")
		}
		decompressed, err := io.ReadAll(gz)
		if err != nil {
			return nil, errors.Wrap(ErrMalformed, "decompressing payload")
		}
		payload = decompressed
	}

	dec := gob.NewDecoder(bytes.NewReader(payload))

	switch tag {
	case tagORSWOT:
		var w orswotWire
		if err := dec.Decode(&w); err != nil {
			return nil, errors.Wrap(ErrMalformed, "decoding ORSWOT payload")
		}
		return rebuildORSWOT(&w), nil
	case tagFlag:
		var w flagWire
		if err := dec.Decode(&w); err != nil {
			return nil, errors.Wrap(ErrMalformed, "decoding Flag payload")
		}
		return rebuildFlag(&w), nil
	case tagMap:
		var w mapWire
		if err := dec.Decode(&w); err != nil {
			return nil, errors.Wrap(ErrMalformed, "decoding Map payload")
		}
		return rebuildMap(&w), nil
	default:
		return nil, errors.Wrapf(ErrMalformed, "unknown type tag %d", tag)
	}
}
