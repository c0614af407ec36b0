package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

const pcdCommentChar = "#"

// NewFromFile returns a pointcloud read in from the given file, tagged with frame and stamp.
func NewFromFile(fn, frame string, stamp time.Time) (*PointCloud, error) {
	switch filepath.Ext(fn) {
	case ".pcd":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		cloud, err := ReadPCD(f)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %q", fn)
		}
		return cloud.WithHeader(frame, stamp), nil
	case ".las":
		return NewFromLASFile(fn, frame, stamp)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// NewFromLASFile returns a point cloud from reading a LAS file, tagged with frame and stamp.
func NewFromLASFile(fn, frame string, stamp time.Time) (*PointCloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", fn)
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	points := make([]r3.Vector, 0, lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()
		points = append(points, r3.Vector{X: data.X, Y: data.Y, Z: data.Z})
	}
	return newOwned(frame, stamp, points), nil
}

// WriteToLASFile writes the point cloud out to a LAS file.
func WriteToLASFile(cloud *PointCloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	if err = lf.AddHeader(lidario.LasHeader{PointFormatID: 0}); err != nil {
		return
	}
	cloud.Iterate(func(_ int, pos r3.Vector) bool {
		err = lf.AddLasPoint(&lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			PointSourceID: 1,
		})
		return err == nil
	})
	// nolint:nakedret
	return
}

// WriteToFile writes the cloud to fn, as LAS if fn ends in .las and as a binary PCD otherwise.
func WriteToFile(cloud *PointCloud, fn string) (err error) {
	if filepath.Ext(fn) == ".las" {
		return WriteToLASFile(cloud, fn)
	}
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err = ToPCD(cloud, w, PCDBinary); err != nil {
		return err
	}
	return w.Flush()
}

// ToPCD writes the cloud as x y z float32 fields. Frame and timestamp are not part of the format.
func ToPCD(cloud *PointCloud, out io.Writer, outputType PCDType) error {
	var dataLine string
	switch outputType {
	case PCDAscii:
		dataLine = "ascii"
	case PCDBinary:
		dataLine = "binary"
	case PCDCompressed:
		return errors.New("compressed PCD not yet implemented")
	default:
		return errors.Errorf("unknown pcd output type %d", outputType)
	}
	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		cloud.Size(), cloud.Size(), dataLine); err != nil {
		return err
	}
	return writePCDData(cloud, out, outputType)
}

func writePCDData(cloud *PointCloud, out io.Writer, pcdtype PCDType) error {
	var err error
	buf := make([]byte, 12)
	cloud.Iterate(func(_ int, pos r3.Vector) bool {
		switch pcdtype {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(pos.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(pos.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(pos.Z)))
			_, err = out.Write(buf)
		default:
			_, err = fmt.Fprintf(out, "%s %s %s\n",
				strconv.FormatFloat(pos.X, 'g', -1, 32),
				strconv.FormatFloat(pos.Y, 'g', -1, 32),
				strconv.FormatFloat(pos.Z, 'g', -1, 32))
		}
		return err == nil
	})
	return err
}

type pcdField struct {
	name  string
	size  int
	type_ string
	count int
}

type pcdHeader struct {
	fields []pcdField
	width  uint64
	height uint64
	points uint64
	data   PCDType
	seen   map[string]bool
}

// offsets of x, y, z among the flattened values of one point and its byte offsets.
type pcdLayout struct {
	valueIdx  [3]int
	byteOff   [3]int
	stride    int
	numValues int
}

var pcdRequiredFields = []string{"FIELDS", "SIZE", "TYPE", "WIDTH", "HEIGHT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, header *pcdHeader) error {
	var err error
	name, value, _ := strings.Cut(line, " ")
	value = strings.TrimSpace(value)
	tokens := strings.Fields(value)
	header.seen[name] = true

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		header.fields = make([]pcdField, len(tokens))
		for i, token := range tokens {
			header.fields[i] = pcdField{name: token, count: 1}
		}
	case "SIZE":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		for i, token := range tokens {
			header.fields[i].size, err = strconv.Atoi(token)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
		for i, token := range tokens {
			header.fields[i].type_ = token
		}
	case "COUNT":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in COUNT line")
		}
		for i, token := range tokens {
			header.fields[i].count, err = strconv.Atoi(token)
			if err != nil || header.fields[i].count < 1 {
				return errors.Errorf("invalid COUNT field %s", token)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		// The viewpoint records the sensor pose at acquisition; points are not moved by it.
		for _, token := range tokens {
			if _, err = strconv.ParseFloat(token, 64); err != nil {
				return errors.Wrapf(err, "invalid VIEWPOINT field %s", token)
			}
		}
	case "POINTS":
		header.points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	default:
		return errors.Errorf("unknown pcd header line %q", line)
	}
	return nil
}

func (header *pcdHeader) layout() (pcdLayout, error) {
	var l pcdLayout
	found := [3]bool{}
	for _, f := range header.fields {
		axis := -1
		switch f.name {
		case "x":
			axis = 0
		case "y":
			axis = 1
		case "z":
			axis = 2
		}
		if axis >= 0 {
			if f.type_ != "F" || (f.size != 4 && f.size != 8) || f.count != 1 {
				return l, errors.Errorf("field %s must be a single F4 or F8 value", f.name)
			}
			l.valueIdx[axis] = l.numValues
			l.byteOff[axis] = l.stride
			found[axis] = true
		}
		switch f.size {
		case 1, 2, 4, 8:
		default:
			return l, errors.Errorf("invalid size %d for field %s", f.size, f.name)
		}
		l.numValues += f.count
		l.stride += f.size * f.count
	}
	if !found[0] || !found[1] || !found[2] {
		return l, errors.New("pcd fields must include x, y and z")
	}
	return l, nil
}

// ReadPCD reads an ascii or binary PCD stream. Fields other than x, y and z are ignored.
// The returned cloud has an empty frame and zero timestamp; use WithHeader to tag it.
func ReadPCD(inRaw io.Reader) (*PointCloud, error) {
	header := pcdHeader{seen: map[string]bool{}}
	in := bufio.NewReader(inRaw)
	lineCount := 0
	for !header.seen["DATA"] {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", lineCount)
		}
		lineCount++
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, &header); err != nil {
			return nil, err
		}
	}
	for _, name := range pcdRequiredFields {
		if !header.seen[name] {
			return nil, errors.Errorf("pcd header missing %s", name)
		}
	}
	if header.points != header.width*header.height {
		return nil, errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", header.points, header.width*header.height)
	}
	l, err := header.layout()
	if err != nil {
		return nil, err
	}

	var points []r3.Vector
	switch header.data {
	case PCDAscii:
		points, err = readPCDAscii(in, header, l)
	case PCDBinary:
		points, err = readPCDBinary(in, header, l)
	default:
		return nil, errors.New("compressed pcd not yet supported")
	}
	if err != nil {
		return nil, err
	}
	return newOwned("", time.Time{}, points), nil
}

func readPCDAscii(in *bufio.Reader, header pcdHeader, l pcdLayout) ([]r3.Vector, error) {
	points := make([]r3.Vector, 0, header.points)
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != l.numValues {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		var coords [3]float64
		for axis, idx := range l.valueIdx {
			coords[axis], err = strconv.ParseFloat(tokens[idx], 64)
			if err != nil {
				return nil, errors.Errorf("invalid point %d field %s: %s", i, tokens[idx], err)
			}
		}
		points = append(points, r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	return points, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader, l pcdLayout) ([]r3.Vector, error) {
	points := make([]r3.Vector, 0, header.points)
	sizes := [3]int{}
	for _, f := range header.fields {
		switch f.name {
		case "x":
			sizes[0] = f.size
		case "y":
			sizes[1] = f.size
		case "z":
			sizes[2] = f.size
		}
	}
	buf := make([]byte, l.stride)
	for i := 0; i < int(header.points); i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		var coords [3]float64
		for axis, off := range l.byteOff {
			if sizes[axis] == 8 {
				coords[axis] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
			} else {
				coords[axis] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])))
			}
		}
		points = append(points, r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	return points, nil
}
