package nnue

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Weight file format constants
const (
	MagicNumber = 0x4E474853 // "SHGN"
	Version     = 2
)

// ErrBadWeights is returned for a weights stream whose header does not match this network.
var ErrBadWeights = errors.New("nnue: weights do not match network")

// FileHeader is the header of the weight file.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	FeatureSize uint32
	L1Size      uint32
	L2Size      uint32
}

func (h FileHeader) check() error {
	switch {
	case h.Magic != MagicNumber:
		return fmt.Errorf("%w: magic %x", ErrBadWeights, h.Magic)
	case h.Version != Version:
		return fmt.Errorf("%w: version %d", ErrBadWeights, h.Version)
	case h.FeatureSize != FeatureSize, h.L1Size != L1Size, h.L2Size != L2Size:
		return fmt.Errorf("%w: shape %dx%dx%d", ErrBadWeights, h.FeatureSize, h.L1Size, h.L2Size)
	}
	return nil
}

// LoadWeights loads network weights from a binary file.
// File format (little endian):
//   - Header: Magic, Version, FeatureSize, L1Size, L2Size (uint32 each)
//   - FeatureWeights: FeatureSize * L1Size * int16
//   - FeatureBias: L1Size * int16
//   - MaterialWeights: FeatureSize * int32
//   - Hidden weights: L2Size * L1Size*2 * int8, one row per neuron
//   - Hidden bias: L2Size * int32
//   - Output weights: L2Size * int8
//   - Output bias: int32
func (n *Network) LoadWeights(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open weights file: %w", err)
	}
	defer f.Close()
	return n.LoadWeightsFromReader(bufio.NewReader(f))
}

// SaveWeights saves network weights to a binary file.
func (n *Network) SaveWeights(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create weights file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := n.WriteWeights(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush weights: %w", err)
	}
	return f.Close()
}

// sections lists the weight blocks in file order.
func (n *Network) sections() []struct {
	name string
	data any
} {
	return []struct {
		name string
		data any
	}{
		{"feature weights", &n.FeatureWeights},
		{"feature bias", &n.FeatureBias},
		{"material weights", &n.MaterialWeights},
		{"hidden weights", &n.Hidden.Weights},
		{"hidden bias", &n.Hidden.Bias},
		{"output weights", &n.Output.Weights},
		{"output bias", &n.Output.Bias},
	}
}

// WriteWeights serializes the header and every weight block.
func (n *Network) WriteWeights(w io.Writer) error {
	header := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		FeatureSize: FeatureSize,
		L1Size:      L1Size,
		L2Size:      L2Size,
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range n.sections() {
		if err := binary.Write(w, binary.LittleEndian, s.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", s.name, err)
		}
	}
	return nil
}

// LoadWeightsFromReader loads network weights from an io.Reader.
func (n *Network) LoadWeightsFromReader(r io.Reader) error {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if err := header.check(); err != nil {
		return err
	}
	for _, s := range n.sections() {
		if err := binary.Read(r, binary.LittleEndian, s.data); err != nil {
			return fmt.Errorf("failed to read %s: %w", s.name, err)
		}
	}
	return nil
}
