// Package snapshot stores game states as zstd-compressed JSON files with a
// single header line in front of the body.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"empires-server/internal/state"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	GameID  int64  `json:"game_id"`
	Turn    int    `json:"turn"`
	Variant string `json:"variant"`
	Digest  string `json:"digest"`
}

// Name is the file name used for a game's snapshot at a turn.
func Name(gameID int64, turn int) string {
	return fmt.Sprintf("game-%d-turn-%06d.snap.zst", gameID, turn)
}

func Write(path string, st *state.State) (Header, error) {
	digest, err := st.Digest()
	if err != nil {
		return Header{}, err
	}
	h := Header{Version: Version, GameID: st.GameID, Turn: st.Turn.Turn, Variant: st.Variant, Digest: digest}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return h, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return h, err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return h, err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(h)
	if err != nil {
		return h, err
	}
	if _, err := bw.Write(hb); err != nil {
		return h, err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return h, err
	}
	if err := json.NewEncoder(bw).Encode(st); err != nil {
		return h, fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return h, err
	}
	if err := enc.Close(); err != nil {
		return h, err
	}
	return h, f.Close()
}

// Read loads a snapshot and checks the body against the header digest.
func Read(path string) (Header, *state.State, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, nil, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, nil, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return h, nil, fmt.Errorf("unsupported snapshot version %d", h.Version)
	}

	var st state.State
	if err := json.NewDecoder(br).Decode(&st); err != nil {
		return h, nil, fmt.Errorf("json decode: %w", err)
	}
	digest, err := st.Digest()
	if err != nil {
		return h, nil, err
	}
	if digest != h.Digest {
		return h, nil, fmt.Errorf("snapshot digest mismatch: header %s, body %s", h.Digest, digest)
	}
	return h, &st, nil
}
