package nnue

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/hailam/shogiplay/internal/board"
)

func randomNetwork() *Network {
	net := NewNetwork()
	net.InitRandom(12345)
	return net
}

func TestActiveFeatures(t *testing.T) {
	tests := []string{
		board.StartSFEN,
		"l6nl/5+P1gk/2np1S3/p1p4Pp/3P2Sp1/1PPb2P1P/P5GS1/R8/LN4bKL w RGgsn5p 1",
		"4k4/9/9/9/9/9/9/9/4K4 b RB2G2S2N2L9Prb2g2s2n2l9p 1",
	}
	for _, sfen := range tests {
		pos, err := board.ParseSFEN(sfen)
		if err != nil {
			t.Fatalf("ParseSFEN(%q): %v", sfen, err)
		}
		for c := board.Black; c <= board.White; c++ {
			features := AppendActiveFeatures(pos, c, nil)
			if len(features) > MaxActiveFeatures {
				t.Errorf("%s: %d features exceed %d", sfen, len(features), MaxActiveFeatures)
			}
			seen := make(map[int]bool, len(features))
			for _, f := range features {
				if f < 0 || f >= FeatureSize {
					t.Fatalf("%s: feature %d out of range", sfen, f)
				}
				if seen[f] {
					t.Fatalf("%s: feature %d active twice", sfen, f)
				}
				seen[f] = true
			}
		}
	}
}

func TestPerspectivesMirror(t *testing.T) {
	p := board.NewPiece(board.Silver, board.Black)
	q := board.NewPiece(board.Silver, board.White)
	sq := board.NewSquare(2, 6)
	mirrored := board.Square(board.NumSquares - 1 - int(sq))
	if BoardIndex(board.Black, p, sq) != BoardIndex(board.White, q, mirrored) {
		t.Error("a black piece seen by black must match the mirrored white piece seen by white")
	}
	if HandIndex(board.Black, board.Black, board.Gold, 2) != HandIndex(board.White, board.White, board.Gold, 2) {
		t.Error("own hand features must not depend on the color")
	}
	if HandIndex(board.Black, board.Black, board.Pawn, 1) == HandIndex(board.Black, board.White, board.Pawn, 1) {
		t.Error("own and opponent hand features collide")
	}
}

func TestStartPositionSymmetric(t *testing.T) {
	if testing.Short() {
		t.Skip("network initialisation is slow")
	}
	ev := NewEvaluatorFromNetwork(randomNetwork())
	black, _ := board.ParseSFEN(board.StartSFEN)
	white, _ := board.ParseSFEN("lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w - 1")
	if b, w := ev.Evaluate(black), ev.Evaluate(white); b != w {
		t.Errorf("start position: black to move %d, white to move %d", b, w)
	}
}

func TestKingBuckets(t *testing.T) {
	tests := []struct {
		sfen         string
		black, white int
	}{
		{board.StartSFEN, 5, 5},
		{"8k/9/9/9/9/9/9/9/K8 b - 1", 8, 8},
		{"k8/9/9/9/4K4/9/9/9/9 b - 1", 4, 2},
	}
	for _, tc := range tests {
		pos, err := board.ParseSFEN(tc.sfen)
		if err != nil {
			t.Fatalf("ParseSFEN(%q): %v", tc.sfen, err)
		}
		if got := KingBucket(pos, board.Black); got != tc.black {
			t.Errorf("%s: black bucket %d, want %d", tc.sfen, got, tc.black)
		}
		if got := KingBucket(pos, board.White); got != tc.white {
			t.Errorf("%s: white bucket %d, want %d", tc.sfen, got, tc.white)
		}
		for _, f := range AppendActiveFeatures(pos, board.Black, nil) {
			if f/FeaturesPerBucket != tc.black {
				t.Fatalf("%s: feature %d outside black's bucket %d", tc.sfen, f, tc.black)
			}
		}
	}
}

func TestFeatureMaterial(t *testing.T) {
	sq := board.NewSquare(4, 4)
	tests := []struct {
		name  string
		local int
		want  int32
	}{
		{"own gold in hand", HandIndex(board.Black, board.Black, board.Gold, 1), 540},
		{"third enemy pawn in hand", HandIndex(board.Black, board.White, board.Pawn, 3), -90},
		{"own rook in hand", HandIndex(board.White, board.White, board.Rook, 2), 990},
		{"own king", BoardIndex(board.Black, board.NewPiece(board.King, board.Black), sq), 0},
		{"enemy horse", BoardIndex(board.White, board.NewPiece(board.Horse, board.Black), sq), -945},
		{"own dragon", BoardIndex(board.Black, board.NewPiece(board.Dragon, board.Black), sq), 1395},
	}
	for _, tc := range tests {
		if got := featureMaterial(tc.local); got != tc.want {
			t.Errorf("%s: material %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestMaterialPath(t *testing.T) {
	net := NewNetwork()
	net.initMaterial()

	tests := []struct {
		sfen string
		want int
	}{
		{board.StartSFEN, 0},
		{"4k4/9/9/9/9/9/9/9/4K4 b G 1", 540},
		{"4k4/9/9/9/9/9/9/9/4K4 w G 1", -540},
		{"4k4/9/9/9/9/9/9/4+R4/4K4 w 2p 1", -1395 + 180},
	}
	for _, tc := range tests {
		pos, err := board.ParseSFEN(tc.sfen)
		if err != nil {
			t.Fatalf("ParseSFEN(%q): %v", tc.sfen, err)
		}
		var acc Accumulator
		acc.ComputeFull(pos, net)
		if acc.Material[board.Black] != -acc.Material[board.White] {
			t.Errorf("%s: perspectives disagree: %d vs %d", tc.sfen, acc.Material[board.Black], acc.Material[board.White])
		}
		if got := net.Forward(&acc, pos.SideToMove); got != tc.want {
			t.Errorf("%s: Forward = %d, want %d", tc.sfen, got, tc.want)
		}
	}
}

func TestWeightsRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("network initialisation is slow")
	}
	net := randomNetwork()
	var buf bytes.Buffer
	if err := net.WriteWeights(&buf); err != nil {
		t.Fatal(err)
	}
	loaded := NewNetwork()
	if err := loaded.LoadWeightsFromReader(&buf); err != nil {
		t.Fatal(err)
	}
	pos := board.NewPosition()
	if a, b := NewEvaluatorFromNetwork(net).Evaluate(pos), NewEvaluatorFromNetwork(loaded).Evaluate(pos); a != b {
		t.Errorf("loaded network evaluates %d, original %d", b, a)
	}
}

func TestBadWeightsHeader(t *testing.T) {
	tests := []struct {
		name   string
		header FileHeader
	}{
		{"magic", FileHeader{Magic: 0x12345678, Version: Version, FeatureSize: FeatureSize, L1Size: L1Size, L2Size: L2Size}},
		{"version", FileHeader{Magic: MagicNumber, Version: Version + 1, FeatureSize: FeatureSize, L1Size: L1Size, L2Size: L2Size}},
		{"shape", FileHeader{Magic: MagicNumber, Version: Version, FeatureSize: FeatureSize, L1Size: L1Size * 2, L2Size: L2Size}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			_ = binary.Write(&buf, binary.LittleEndian, &tc.header)
			err := NewNetwork().LoadWeightsFromReader(&buf)
			if !errors.Is(err, ErrBadWeights) {
				t.Errorf("err = %v, want ErrBadWeights", err)
			}
		})
	}

	if err := NewNetwork().LoadWeightsFromReader(bytes.NewReader(nil)); err == nil {
		t.Error("empty stream accepted")
	}
}

func TestClampedReLU(t *testing.T) {
	for _, tc := range []struct {
		in   int16
		want int8
	}{{-5, 0}, {0, 0}, {64, 64}, {127, 127}, {1000, 127}} {
		if got := ClampedReLU(tc.in); got != tc.want {
			t.Errorf("ClampedReLU(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
