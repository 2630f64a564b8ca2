package csv

import (
	"bufio"
	"bytes"
	"io"
	"slices"
)

// streamingRewriter replaces every occurrence of pat with repl without
// buffering the whole stream. The last len(pat)-1 bytes of each block are
// carried into the next one so matches spanning a read boundary are found.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	carry []byte
	buf   bytes.Buffer
	chunk []byte
	eof   bool
}

func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, 64*1024),
		pat:   pat,
		repl:  repl,
		chunk: make([]byte, 64*1024),
	}
}

func (sr *streamingRewriter) Read(p []byte) (int, error) {
	for sr.buf.Len() == 0 {
		if sr.eof {
			return 0, io.EOF
		}
		n, rerr := sr.br.Read(sr.chunk)
		if n > 0 {
			block := append(slices.Clone(sr.carry), sr.chunk[:n]...)
			block = bytes.ReplaceAll(block, sr.pat, sr.repl)

			k := len(sr.pat) - 1
			if k > 0 && len(block) > k {
				sr.buf.Write(block[:len(block)-k])
				sr.carry = append(sr.carry[:0], block[len(block)-k:]...)
			} else if k > 0 {
				sr.carry = append(sr.carry[:0], block...)
			} else {
				sr.buf.Write(block)
			}
		}
		switch {
		case rerr == io.EOF:
			sr.buf.Write(sr.carry)
			sr.carry = sr.carry[:0]
			sr.eof = true
		case rerr != nil:
			return 0, rerr
		}
	}
	return sr.buf.Read(p)
}

// withReplacements stacks one rewriter per pair, in sorted key order so the
// result does not depend on map iteration.
func withReplacements(r io.Reader, pairs map[string]string) io.Reader {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		if k != "" && k != pairs[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	for _, k := range keys {
		r = newStreamingRewriter(r, []byte(k), []byte(pairs[k]))
	}
	return r
}
