package embed

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"

	"github.com/minio/highwayhash"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultDim is the vector width used when none is configured.
const DefaultDim = 128

// Hash selects how a token is mapped to a bucket.
type Hash string

const (
	HashSHA1    Hash = "sha1"
	HashHighway Hash = "highway"
)

var (
	tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)
	highwayKey   = []byte("0123456789ABCDEF0123456789ABCDEF")
)

// Tokenize lower-cases text and returns its maximal [A-Za-z0-9_] runs in
// order, duplicates included.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(cases.Lower(language.Und).String(text), -1)
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	toks := Tokenize(text)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

// Embedder turns text into unit-length vectors.
type Embedder struct {
	Dim  int
	Hash Hash
}

// New returns an Embedder, rejecting a non-positive dimension or an unknown
// hash.
func New(dim int, hash Hash) (Embedder, error) {
	if dim <= 0 {
		return Embedder{}, fmt.Errorf("embed: dimension must be > 0, got %d", dim)
	}
	switch hash {
	case "":
		hash = HashSHA1
	case HashSHA1, HashHighway:
	default:
		return Embedder{}, fmt.Errorf("embed: unknown hash %q", hash)
	}
	return Embedder{Dim: dim, Hash: hash}, nil
}

// Default is the SHA1 embedder of width DefaultDim.
func Default() Embedder {
	return Embedder{Dim: DefaultDim, Hash: HashSHA1}
}

// Embed returns the normalized bag-of-buckets vector of text. A zero Dim
// means DefaultDim.
func (e Embedder) Embed(text string) []float64 {
	dim := e.Dim
	if dim <= 0 {
		dim = DefaultDim
	}
	vec := make([]float64, dim)
	for _, tok := range Tokenize(text) {
		vec[e.bucket(tok, dim)]++
	}
	return normalize(vec)
}

func (e Embedder) bucket(tok string, dim int) int {
	if e.Hash == HashHighway {
		return int(highwayhash.Sum64([]byte(tok), highwayKey) % uint64(dim))
	}
	sum := sha1.Sum([]byte(tok))
	return int(binary.BigEndian.Uint16(sum[:2])) % dim
}

// Embed is Default().Embed with an explicit dimension.
func Embed(text string, dim int) []float64 {
	return Embedder{Dim: dim, Hash: HashSHA1}.Embed(text)
}

// Cosine is the cosine similarity of two unit vectors, i.e. their dot
// product. Extra components of the longer vector are ignored.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

func normalize(vec []float64) []float64 {
	var sq float64
	for _, x := range vec {
		sq += x * x
	}
	norm := math.Sqrt(sq)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
