// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rst

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	goio "io"

	"github.com/cpmech/gomantle/fem"
	"github.com/cpmech/gosl/chk"
	"github.com/klauspost/compress/zlib"
)

// headerSize is the size of the header of the resume file: four uint32 values
//  [0] number of blocks (always 1)
//  [1] block size (uncompressed length)
//  [2] size of last block (uncompressed length)
//  [3] compressed length
const headerSize = 16

// resumeData holds the scalar bookkeeping of a snapshot
type resumeData struct {
	Time               float64
	Dt                 float64
	OldDt              float64
	Step               int
	PreRefinementStep  int
	PressureAdjustment float64
	Subs               map[string][]byte // states of sub-managers
}

// newResumeData collects the scalars of st
func newResumeData(st *fem.State) *resumeData {
	return &resumeData{
		Time:               st.Time,
		Dt:                 st.Dt,
		OldDt:              st.OldDt,
		Step:               st.Step,
		PreRefinementStep:  st.PreRefinementStep,
		PressureAdjustment: st.PressureAdjustment,
		Subs:               make(map[string][]byte),
	}
}

// apply sets the scalars of st
func (o *resumeData) apply(st *fem.State) {
	st.Time = o.Time
	st.Dt = o.Dt
	st.OldDt = o.OldDt
	st.Step = o.Step
	st.PreRefinementStep = o.PreRefinementStep
	st.PressureAdjustment = o.PressureAdjustment
}

// encodeResume serialises, compresses and prefixes d with the header
func encodeResume(d *resumeData) (b []byte, err error) {

	// serialise
	var raw bytes.Buffer
	err = gob.NewEncoder(&raw).Encode(d)
	if err != nil {
		return nil, chk.Err("cannot serialise resume data:\n%v", err)
	}

	// compress
	var z bytes.Buffer
	w, err := zlib.NewWriterLevel(&z, zlib.BestCompression)
	if err != nil {
		return nil, chk.Err("cannot allocate compressor:\n%v", err)
	}
	_, err = w.Write(raw.Bytes())
	if err == nil {
		err = w.Close()
	}
	if err != nil {
		return nil, chk.Err("cannot compress resume data:\n%v", err)
	}

	// header
	n := uint32(raw.Len())
	hdr := [4]uint32{1, n, n, uint32(z.Len())}
	var res bytes.Buffer
	res.Grow(headerSize + z.Len())
	binary.Write(&res, binary.LittleEndian, hdr)
	res.Write(z.Bytes())
	return res.Bytes(), nil
}

// readHeader decodes and checks the header of b
func readHeader(b []byte) (hdr [4]uint32, err error) {
	if len(b) < headerSize {
		return hdr, chk.Err("resume file is too short: %d bytes", len(b))
	}
	err = binary.Read(bytes.NewReader(b[:headerSize]), binary.LittleEndian, &hdr)
	if err != nil {
		return hdr, chk.Err("cannot read header of resume file:\n%v", err)
	}
	if hdr[0] != 1 {
		return hdr, chk.Err("resume file must have exactly one compressed block. header says %d", hdr[0])
	}
	if hdr[1] != hdr[2] {
		return hdr, chk.Err("resume file header is inconsistent: block size %d != last block size %d", hdr[1], hdr[2])
	}
	if uint64(len(b)-headerSize) < uint64(hdr[3]) {
		return hdr, chk.Err("resume file is truncated: %d compressed bytes expected, %d found", hdr[3], len(b)-headerSize)
	}
	return
}

// decodeResume checks the header, decompresses and deserialises b
func decodeResume(b []byte) (d *resumeData, err error) {

	// header
	hdr, err := readHeader(b)
	if err != nil {
		return
	}

	// decompress
	r, err := zlib.NewReader(bytes.NewReader(b[headerSize : headerSize+int(hdr[3])]))
	if err != nil {
		return nil, chk.Err("cannot decompress resume file:\n%v", err)
	}
	defer r.Close()
	raw, err := goio.ReadAll(r)
	if err != nil {
		return nil, chk.Err("cannot decompress resume file:\n%v", err)
	}
	if uint32(len(raw)) != hdr[1] {
		return nil, chk.Err("decompressed resume data has %d bytes but header says %d", len(raw), hdr[1])
	}

	// deserialise
	d = new(resumeData)
	err = gob.NewDecoder(bytes.NewReader(raw)).Decode(d)
	if err != nil {
		return nil, chk.Err("cannot deserialise resume data:\n%v", err)
	}
	return
}
