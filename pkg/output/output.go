// Package output writes the tables and report of a pipeline run.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gilchrisn/setlist-graph/pkg/collab"
	"github.com/gilchrisn/setlist-graph/pkg/pipeline"
)

// File names inside the output directory.
const (
	AliasesFile    = "aliases.csv"
	NodesFile      = "nodes.csv"
	EdgesFile      = "edges.csv"
	SimilarityFile = "similarity.csv"
	HistogramFile  = "similarity_histogram.csv"
	ReportFile     = "report.json"
)

// Writer writes pipeline results.
type Writer interface {
	WriteAliases(res *pipeline.Result, w io.Writer) error
	WriteNodes(res *pipeline.Result, w io.Writer) error
	WriteEdges(res *pipeline.Result, w io.Writer) error
	WriteSimilarity(res *pipeline.Result, w io.Writer) error
	WriteHistogram(res *pipeline.Result, w io.Writer) error
	WriteReport(res *pipeline.Result, w io.Writer) error
	WriteAll(res *pipeline.Result, outputDir string) ([]string, error)
}

// FileWriter writes CSV tables and a JSON report.
type FileWriter struct{}

// NewFileWriter creates a new file-based output writer
func NewFileWriter() Writer {
	return &FileWriter{}
}

// WriteAll writes every table the result carries into outputDir and returns
// the paths written. A similarity-only result yields the similarity tables
// and the report.
func (fw *FileWriter) WriteAll(res *pipeline.Result, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	type table struct {
		name  string
		write func(*pipeline.Result, io.Writer) error
	}
	tables := []table{
		{SimilarityFile, fw.WriteSimilarity},
		{HistogramFile, fw.WriteHistogram},
	}
	if res.Aliases != nil {
		tables = append(tables, table{AliasesFile, fw.WriteAliases})
	}
	if res.Graph != nil && res.Partition != nil {
		tables = append(tables, table{NodesFile, fw.WriteNodes}, table{EdgesFile, fw.WriteEdges})
	}
	tables = append(tables, table{ReportFile, fw.WriteReport})

	var written []string
	for _, t := range tables {
		path := filepath.Join(outputDir, t.name)
		if err := writeFile(path, res, t.write); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", t.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, res *pipeline.Result, write func(*pipeline.Result, io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(res, file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteAliases writes the variant,canonical table.
func (fw *FileWriter) WriteAliases(res *pipeline.Result, w io.Writer) error {
	table := res.Aliases.Table()
	rows := make([][]string, 0, len(table))
	for _, row := range table {
		rows = append(rows, []string{row.Variant, row.Canonical})
	}
	return writeCSV(w, []string{"variant", "canonical"}, rows)
}

// WriteNodes writes the name,community,community_size table.
func (fw *FileWriter) WriteNodes(res *pipeline.Result, w io.Writer) error {
	table := collab.NodeTable(res.Graph, res.Partition)
	rows := make([][]string, 0, len(table))
	for _, row := range table {
		rows = append(rows, []string{row.Name, collab.FormatCommunity(row.Community), strconv.Itoa(row.CommunitySize)})
	}
	return writeCSV(w, []string{"name", "community", "community_size"}, rows)
}

// WriteEdges writes one row per collaboration edge.
func (fw *FileWriter) WriteEdges(res *pipeline.Result, w io.Writer) error {
	table := collab.EdgeTable(res.Graph, res.Partition)
	rows := make([][]string, 0, len(table))
	for _, row := range table {
		rows = append(rows, []string{
			row.NodeA,
			row.NodeB,
			strconv.Itoa(row.Contributions),
			collab.JoinRecords(row.Records),
			collab.FormatCommunity(row.Community),
		})
	}
	return writeCSV(w, []string{"node_a", "node_b", "contributions", "records", "community"}, rows)
}

// WriteSimilarity writes the pairs above the diagnostic lower bound.
func (fw *FileWriter) WriteSimilarity(res *pipeline.Result, w io.Writer) error {
	rows := make([][]string, 0, len(res.Similar))
	for _, p := range res.Similar {
		rows = append(rows, []string{p.A, p.B, strconv.FormatFloat(p.Score, 'f', 2, 64)})
	}
	return writeCSV(w, []string{"name_a", "name_b", "score"}, rows)
}

// WriteHistogram writes the similarity score histogram.
func (fw *FileWriter) WriteHistogram(res *pipeline.Result, w io.Writer) error {
	rows := make([][]string, 0, len(res.Histogram))
	for _, b := range res.Histogram {
		rows = append(rows, []string{
			strconv.FormatFloat(b.Low, 'f', 2, 64),
			strconv.FormatFloat(b.High, 'f', 2, 64),
			strconv.Itoa(b.Count),
		})
	}
	return writeCSV(w, []string{"low", "high", "count"}, rows)
}

// WriteReport writes the diagnostic report as indented JSON.
func (fw *FileWriter) WriteReport(res *pipeline.Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Report)
}
