// Package mmp joins matched molecular pairs of system ligands with the
// protein and pocket clusters of the systems they come from. Pairs whose
// systems fall in different clusters, or whose shared constant part is too
// small, are dropped. Surviving pairs are grouped into congeneric series by
// their constant.
package mmp

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"plicore/internal/chem"
)

// Pair is one row of a matched molecular pair index.
type Pair struct {
	SMILES1   string `json:"smiles1"`
	SMILES2   string `json:"smiles2"`
	ID1       string `json:"id1"`
	ID2       string `json:"id2"`
	Transform string `json:"transform"`
	Constant  string `json:"constant"`
}

// Row is a pair that passed the join.
type Row struct {
	Pair
	System1             string `json:"system_id1"`
	System2             string `json:"system_id2"`
	ProtPocketSetShared string `json:"prot_pocket_set_shared"`
	ConstSize           int    `json:"const_size"`
	CongenericID        int    `json:"congeneric_id"`
}

// Options select the cluster sets and the constant size cut-off.
type Options struct {
	ProteinMetric    string
	ProteinThreshold int
	ProteinDirected  bool
	PocketMetric     string
	PocketThreshold  int
	PocketDirected   bool
	MinConstantSize  int
}

// DefaultOptions mirrors the curated dataset settings.
func DefaultOptions() Options {
	return Options{
		ProteinMetric:    "protein_fident_weighted_sum",
		ProteinThreshold: 95,
		PocketMetric:     "pocket_fident",
		PocketThreshold:  100,
		PocketDirected:   true,
		MinConstantSize:  10,
	}
}

// Clusters maps a system id to its cluster label.
type Clusters map[string]string

// ClusterPath is the location of a cluster table below dir.
func ClusterPath(dir, metric string, threshold int, directed bool) string {
	return filepath.Join(dir,
		"directed="+strconv.FormatBool(directed),
		"metric="+metric,
		"threshold="+strconv.Itoa(threshold)+".tsv")
}

// LoadClusters reads the cluster table for one metric and threshold.
func LoadClusters(dir, metric string, threshold int, directed bool) (Clusters, error) {
	path := ClusterPath(dir, metric, threshold, directed)
	rc, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open clusters: %w", err)
	}
	defer rc.Close()
	return ReadClusters(rc)
}

// ReadClusters reads a tab separated table with system_id and label columns.
func ReadClusters(r io.Reader) (Clusters, error) {
	m, err := readMapping(r, "cluster table", []string{"system_id"}, []string{"label", "cluster"})
	return Clusters(m), err
}

// ReadSystemMap reads a tab separated table resolving pair ids (column id,
// ligand_id or compound_id) to system_id.
func ReadSystemMap(r io.Reader) (map[string]string, error) {
	return readMapping(r, "system map", []string{"id", "ligand_id", "compound_id"}, []string{"system_id"})
}

// LoadSystemMap reads a system map from disk; ".gz" files are decompressed.
func LoadSystemMap(path string) (map[string]string, error) {
	rc, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open system map: %w", err)
	}
	defer rc.Close()
	return ReadSystemMap(rc)
}

func readMapping(r io.Reader, what string, keys, values []string) (map[string]string, error) {
	cr := newReader(r)
	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s header: %w", what, err)
	}
	keyCol, valCol := -1, -1
	for i, name := range head {
		name = strings.TrimSpace(name)
		if keyCol < 0 && slices.Contains(keys, name) {
			keyCol = i
		} else if valCol < 0 && slices.Contains(values, name) {
			valCol = i
		}
	}
	if keyCol < 0 || valCol < 0 {
		return nil, fmt.Errorf("%s: need %s and %s columns", what, keys[0], values[0])
	}
	out := map[string]string{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", what, line, err)
		}
		if keyCol >= len(rec) || valCol >= len(rec) {
			continue
		}
		out[rec[keyCol]] = rec[valCol]
	}
}

var pairColumns = []string{"SMILES1", "SMILES2", "id1", "id2", "V1>>V2", "CONSTANT"}

// ReadPairs reads a pair index. A first row naming the columns is treated as
// a header; otherwise the six columns are taken positionally.
func ReadPairs(r io.Reader) ([]Pair, error) {
	cr := newReader(r)
	var pairs []Pair
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return pairs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("pair index line %d: %w", line, err)
		}
		if line == 1 && len(rec) > 0 && strings.TrimSpace(rec[0]) == pairColumns[0] {
			continue
		}
		if len(rec) < len(pairColumns) {
			return nil, fmt.Errorf("pair index line %d: want %d columns, got %d", line, len(pairColumns), len(rec))
		}
		pairs = append(pairs, Pair{
			SMILES1: rec[0], SMILES2: rec[1],
			ID1: rec[2], ID2: rec[3],
			Transform: rec[4], Constant: rec[5],
		})
	}
}

// LoadPairs reads a pair index from disk; ".gz" files are decompressed.
func LoadPairs(path string) ([]Pair, error) {
	rc, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open pair index: %w", err)
	}
	defer rc.Close()
	return ReadPairs(rc)
}

// ConstantSize counts the heavy atoms of a constant fragment, leaving out
// attachment points.
func ConstantSize(smiles string) (int, error) {
	m, err := chem.ParseSMILES(smiles)
	if err != nil {
		return 0, fmt.Errorf("constant %q: %w", smiles, err)
	}
	n := 0
	for _, a := range m.Atoms {
		if a.Element != "*" && !a.IsHydrogen() {
			n++
		}
	}
	return n, nil
}

// Join keeps the pairs whose systems share both the protein and the pocket
// cluster and whose constant is at least opts.MinConstantSize heavy atoms.
// systems resolves pair ids to system ids; ids missing from a non-nil map
// drop the pair, and a nil map uses the ids as they are. Constants that fail
// to parse drop their pairs.
func Join(pairs []Pair, systems map[string]string, protein, pocket Clusters, opts Options) []Row {
	resolve := func(id string) (string, bool) {
		if systems == nil {
			return id, true
		}
		s, ok := systems[id]
		return s, ok
	}
	sizes := map[string]int{}
	var rows []Row
	for _, p := range pairs {
		s1, ok1 := resolve(p.ID1)
		s2, ok2 := resolve(p.ID2)
		if !ok1 || !ok2 {
			continue
		}
		prot1, okp1 := protein[s1]
		prot2, okp2 := protein[s2]
		pock1, okk1 := pocket[s1]
		pock2, okk2 := pocket[s2]
		if !okp1 || !okp2 || !okk1 || !okk2 || prot1 != prot2 || pock1 != pock2 {
			continue
		}
		size, seen := sizes[p.Constant]
		if !seen {
			n, err := ConstantSize(p.Constant)
			if err != nil {
				n = -1
			}
			sizes[p.Constant] = n
			size = n
		}
		if size < 0 || size < opts.MinConstantSize {
			continue
		}
		rows = append(rows, Row{
			Pair:                p,
			System1:             s1,
			System2:             s2,
			ProtPocketSetShared: prot1 + "_" + pock1,
			ConstSize:           size,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Constant != b.Constant {
			return a.Constant < b.Constant
		}
		if a.ID1 != b.ID1 {
			return a.ID1 < b.ID1
		}
		return a.ID2 < b.ID2
	})
	ids := map[string]int{}
	for i := range rows {
		id, ok := ids[rows[i].Constant]
		if !ok {
			id = len(ids)
			ids[rows[i].Constant] = id
		}
		rows[i].CongenericID = id
	}
	return rows
}

// WriteTSV writes rows with the pair columns followed by the join columns.
func WriteTSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	head := append(append([]string{}, pairColumns...), "system_id1", "system_id2", "prot_pocket_set_shared", "const_size", "congeneric_id")
	if err := cw.Write(head); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.SMILES1, r.SMILES2, r.ID1, r.ID2, r.Transform, r.Constant,
			r.System1, r.System2, r.ProtPocketSetShared,
			strconv.Itoa(r.ConstSize), strconv.Itoa(r.CongenericID),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return gzipFile{Reader: zr, f: f}, nil
}
