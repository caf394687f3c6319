package storage_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vtmodding/sbundle/bundle"
	"github.com/vtmodding/sbundle/hash"
	"github.com/vtmodding/sbundle/storage"
)

func buildVariantTable(extHash, nameHash uint64, payload []byte) []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], extHash)
	binary.LittleEndian.PutUint64(buf[8:16], nameHash)
	binary.LittleEndian.PutUint32(buf[16:20], 1)
	var prefix [12]byte
	binary.LittleEndian.PutUint32(prefix[4:8], uint32(len(payload)))
	buf = append(buf, prefix[:]...)
	buf = append(buf, payload...)
	return buf
}

func buildRecord(extHash, nameHash uint64, flags uint32, payload []byte) []byte {
	vt := buildVariantTable(extHash, nameHash, payload)
	header := make([]byte, 24)
	binary.LittleEndian.PutUint64(header[0:8], extHash)
	binary.LittleEndian.PutUint64(header[8:16], nameHash)
	binary.LittleEndian.PutUint32(header[16:20], flags)
	binary.LittleEndian.PutUint32(header[20:24], uint32(len(vt)))
	return append(header, vt...)
}

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()

	extHash, ok := hash.HashByExtension("lua")
	if !ok {
		t.Fatal("extension table missing \"lua\"")
	}
	key := bundle.FileKey{ExtHash: extHash, NameHash: 0x1}
	record := buildRecord(extHash, key.NameHash, 0, []byte("print('hi')"))

	source := storage.NewMemory()
	source.Header = bytes.Repeat([]byte{0x9}, 256)
	source.Records[key] = record

	if err := bundle.Pack(source, bundle.Options{}); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	packed, err := source.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	sink := storage.NewMemoryFromReader(bytes.NewReader(packed), len(packed))
	if err := bundle.Unpack(sink, bundle.Options{}); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if !bytes.Equal(sink.Header, source.Header) {
		t.Fatalf("header mismatch")
	}
	if diff := cmp.Diff(record, sink.Records[key]); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestDirectoryRoundTrip(t *testing.T) {
	t.Parallel()

	extHash, ok := hash.HashByExtension("lua")
	if !ok {
		t.Fatal("extension table missing \"lua\"")
	}
	key := bundle.FileKey{ExtHash: extHash, NameHash: 0xabc}
	record := buildRecord(extHash, key.NameHash, 0, []byte("print('hi')"))

	source := storage.NewMemory()
	source.Header = bytes.Repeat([]byte{0x5}, 256)
	source.Records[key] = record
	if err := bundle.Pack(source, bundle.Options{}); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	packed, err := source.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	root := t.TempDir()
	bundlePath := filepath.Join(root, "original.bundle")
	if err := os.WriteFile(bundlePath, packed, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	extractDir := filepath.Join(root, "extracted")
	dirSink := &storage.Directory{Dir: extractDir, BundlePath: bundlePath}
	if err := bundle.Unpack(dirSink, bundle.Options{}); err != nil {
		t.Fatalf("Unpack into directory: %v", err)
	}

	assetPath := filepath.Join(extractDir, "0000000000000abc.lua")
	got, err := os.ReadFile(assetPath)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", assetPath, err)
	}
	if diff := cmp.Diff(record, got); diff != "" {
		t.Fatalf("extracted asset mismatch (-want +got):\n%s", diff)
	}

	headerPath := filepath.Join(extractDir, "_HEADER")
	gotHeader, err := os.ReadFile(headerPath)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", headerPath, err)
	}
	if !bytes.Equal(gotHeader, source.Header) {
		t.Fatalf("extracted header mismatch")
	}

	repackedPath := filepath.Join(root, "repacked.bundle")
	dirSource := &storage.Directory{Dir: extractDir, BundlePath: repackedPath}
	if err := bundle.Pack(dirSource, bundle.Options{}); err != nil {
		dirSource.Abort()
		t.Fatalf("Pack from directory: %v", err)
	}
	if err := dirSource.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	repacked, err := os.ReadFile(repackedPath)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", repackedPath, err)
	}
	verifySink := storage.NewMemoryFromReader(bytes.NewReader(repacked), len(repacked))
	if err := bundle.Unpack(verifySink, bundle.Options{}); err != nil {
		t.Fatalf("Unpack repacked bundle: %v", err)
	}
	if diff := cmp.Diff(record, verifySink.Records[key]); diff != "" {
		t.Fatalf("repacked record mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeLastWriterWins(t *testing.T) {
	t.Parallel()

	extHash, _ := hash.HashByExtension("lua")
	key := bundle.FileKey{ExtHash: extHash, NameHash: 1}

	first := storage.NewMemory()
	first.Header = bytes.Repeat([]byte{1}, 256)
	first.Records[key] = buildRecord(extHash, key.NameHash, 0, []byte("old"))
	if err := bundle.Pack(first, bundle.Options{}); err != nil {
		t.Fatalf("Pack first: %v", err)
	}
	firstBytes, err := first.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	second := storage.NewMemory()
	second.Header = bytes.Repeat([]byte{1}, 256)
	second.Records[key] = buildRecord(extHash, key.NameHash, 0, []byte("new"))
	if err := bundle.Pack(second, bundle.Options{}); err != nil {
		t.Fatalf("Pack second: %v", err)
	}
	secondBytes, err := second.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	mg := storage.NewMerge(bundle.Options{})
	if err := mg.UnpackFrom(bytes.NewReader(firstBytes), len(firstBytes)); err != nil {
		t.Fatalf("UnpackFrom first: %v", err)
	}
	if err := mg.UnpackFrom(bytes.NewReader(secondBytes), len(secondBytes)); err != nil {
		t.Fatalf("UnpackFrom second: %v", err)
	}

	var out bytes.Buffer
	if err := mg.RepackTo(&out); err != nil {
		t.Fatalf("RepackTo: %v", err)
	}

	sink := storage.NewMemoryFromReader(bytes.NewReader(out.Bytes()), out.Len())
	if err := bundle.Unpack(sink, bundle.Options{}); err != nil {
		t.Fatalf("Unpack merged: %v", err)
	}
	want := buildRecord(extHash, key.NameHash, 0, []byte("new"))
	if diff := cmp.Diff(want, sink.Records[key]); diff != "" {
		t.Fatalf("merged record mismatch (-want +got):\n%s", diff)
	}
}
