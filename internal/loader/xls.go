package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/extrame/ole2"
	"github.com/xuri/excelize/v2"
)

// BIFF8 record types read by the decoder. Everything else is skipped.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDateMode   = 0x0022
	recContinue   = 0x003C
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recXF         = 0x00E0
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recFormat     = 0x041E
	recBOF        = 0x0809
)

const biff8 = 0x0600

var errMalformedXLS = errors.New("malformed xls workbook")

// workbook holds the globals needed to turn sheet cells into text.
type workbook struct {
	sst      []string
	xfFormat []int
	formats  map[int]string
	date1904 bool
	sheetPos int
}

func readXLS(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	stream, err := workbookStream(data)
	if err != nil {
		return nil, err
	}
	wb, err := readGlobals(stream)
	if err != nil {
		return nil, err
	}
	return wb.readSheet(stream)
}

// workbookStream extracts the Workbook stream from the OLE2 container.
func workbookStream(data []byte) (stream []byte, err error) {
	// ole2 follows sector chains without bounds checks.
	defer func() {
		if p := recover(); p != nil {
			stream, err = nil, errMalformedXLS
		}
	}()

	doc, err := ole2.Open(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	dir, err := doc.ListDir()
	if err != nil {
		return nil, err
	}
	var book, root *ole2.File
	for _, f := range dir {
		switch f.Name() {
		case "Workbook", "Book":
			book = f
		case "Root Entry":
			root = f
		}
	}
	if book == nil || root == nil {
		return nil, fmt.Errorf("%w: no workbook stream", errMalformedXLS)
	}
	return io.ReadAll(io.LimitReader(doc.OpenFile(book, root), int64(book.Size)))
}

func readGlobals(stream []byte) (*workbook, error) {
	rd := &biffReader{data: stream}
	id, body, err := rd.next()
	if err != nil {
		return nil, err
	}
	if id != recBOF || len(body) < 2 {
		return nil, fmt.Errorf("%w: missing BOF", errMalformedXLS)
	}
	if v := u16(body, 0); v != biff8 {
		return nil, fmt.Errorf("unsupported xls version %#04x", v)
	}

	wb := &workbook{formats: make(map[int]string), sheetPos: -1}
	var sst [][]byte
	inSST := false
	for {
		id, body, err := rd.next()
		if err != nil {
			return nil, err
		}
		if id == recContinue && inSST {
			sst = append(sst, body)
			continue
		}
		inSST = false

		switch id {
		case recEOF:
			wb.sst = parseSST(sst)
			if wb.sheetPos < 0 {
				return nil, errors.New("no sheets")
			}
			return wb, nil
		case recSST:
			sst = [][]byte{body}
			inSST = true
		case recXF:
			if len(body) >= 4 {
				wb.xfFormat = append(wb.xfFormat, u16(body, 2))
			}
		case recFormat:
			if len(body) >= 2 {
				wb.formats[u16(body, 0)] = unicodeString(body[2:])
			}
		case recDateMode:
			wb.date1904 = len(body) >= 2 && u16(body, 0) == 1
		case recBoundSheet:
			// Only worksheets (type 0) hold cells.
			if wb.sheetPos < 0 && len(body) >= 6 && body[5] == 0 {
				wb.sheetPos = int(binary.LittleEndian.Uint32(body))
			}
		}
	}
}

// readSheet decodes the cell records of the first worksheet. Records of
// embedded substreams (charts) are skipped.
func (wb *workbook) readSheet(stream []byte) ([][]string, error) {
	if wb.sheetPos >= len(stream) {
		return nil, fmt.Errorf("%w: sheet offset out of range", errMalformedXLS)
	}
	rd := &biffReader{data: stream, pos: wb.sheetPos}
	var g grid
	depth := 0
	pendingRow, pendingCol := -1, -1

	for {
		id, d, err := rd.next()
		if err != nil {
			return nil, err
		}
		switch id {
		case recBOF:
			depth++
			continue
		case recEOF:
			depth--
			if depth <= 0 {
				return g.trimmed(), nil
			}
			continue
		}
		if depth != 1 {
			continue
		}

		switch id {
		case recLabelSST:
			if len(d) >= 10 {
				if idx := int(binary.LittleEndian.Uint32(d[6:])); idx < len(wb.sst) {
					g.set(u16(d, 0), u16(d, 2), wb.sst[idx])
				}
			}
		case recLabel:
			if len(d) >= 6 {
				g.set(u16(d, 0), u16(d, 2), unicodeString(d[6:]))
			}
		case recRK:
			if len(d) >= 10 {
				g.set(u16(d, 0), u16(d, 2), wb.number(u16(d, 4), rkValue(binary.LittleEndian.Uint32(d[6:]))))
			}
		case recMulRK:
			// row, first column, (xf, rk) pairs, last column
			if len(d) >= 6 {
				row, col := u16(d, 0), u16(d, 2)
				for off := 4; off+6 <= len(d)-2; off += 6 {
					g.set(row, col, wb.number(u16(d, off), rkValue(binary.LittleEndian.Uint32(d[off+2:]))))
					col++
				}
			}
		case recNumber:
			if len(d) >= 14 {
				v := math.Float64frombits(binary.LittleEndian.Uint64(d[6:]))
				g.set(u16(d, 0), u16(d, 2), wb.number(u16(d, 4), v))
			}
		case recFormula:
			if len(d) < 14 {
				continue
			}
			row, col, res := u16(d, 0), u16(d, 2), d[6:14]
			if res[6] != 0xFF || res[7] != 0xFF {
				g.set(row, col, wb.number(u16(d, 4), math.Float64frombits(binary.LittleEndian.Uint64(res))))
				continue
			}
			switch res[0] {
			case 0: // text result follows in a STRING record
				pendingRow, pendingCol = row, col
			case 1:
				g.set(row, col, boolText(res[2]))
			}
		case recString:
			if pendingRow >= 0 {
				g.set(pendingRow, pendingCol, unicodeString(d))
				pendingRow, pendingCol = -1, -1
			}
		case recBoolErr:
			if len(d) >= 8 && d[7] == 0 {
				g.set(u16(d, 0), u16(d, 2), boolText(d[6]))
			}
		}
	}
}

// number renders a numeric cell. Cells styled with a date format become
// ISO dates; everything else keeps its full precision.
func (wb *workbook) number(xf int, v float64) string {
	if xf < len(wb.xfFormat) && isDateFormat(wb.xfFormat[xf], wb.formats) {
		if t, err := excelize.ExcelDateToTime(v, wb.date1904); err == nil {
			if v == math.Trunc(v) {
				return t.Format("2006-01-02")
			}
			return t.Format("2006-01-02 15:04:05")
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// isDateFormat reports whether a number format displays a date. Workbook
// FORMAT records take precedence over the built-in table.
func isDateFormat(id int, custom map[int]string) bool {
	if code, ok := custom[id]; ok {
		return hasDateTokens(code)
	}
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// hasDateTokens looks for date or time placeholders outside quoted text,
// bracketed sections and escaped characters.
func hasDateTokens(code string) bool {
	var quoted, bracket, escaped bool
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = r != '"'
		case bracket:
			bracket = r != ']'
		case r == '\\', r == '_', r == '*':
			escaped = true
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		case strings.ContainsRune("ymdhs", r):
			return true
		}
	}
	return false
}

// rkValue decodes the compressed RK number encoding: a 30-bit signed
// integer or the top 30 bits of a double, optionally scaled by 1/100.
func rkValue(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&^0x03) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

func boolText(b byte) string {
	if b != 0 {
		return "TRUE"
	}
	return "FALSE"
}

type biffReader struct {
	data []byte
	pos  int
}

func (r *biffReader) next() (int, []byte, error) {
	if r.pos+4 > len(r.data) {
		return 0, nil, fmt.Errorf("%w: truncated record", errMalformedXLS)
	}
	id := u16(r.data, r.pos)
	end := r.pos + 4 + u16(r.data, r.pos+2)
	if end > len(r.data) {
		return 0, nil, fmt.Errorf("%w: truncated record", errMalformedXLS)
	}
	body := r.data[r.pos+4 : end]
	r.pos = end
	return id, body, nil
}

// unicodeString decodes an XLUnicodeString: 16-bit character count, option
// byte, then 8-bit or UTF-16 characters.
func unicodeString(b []byte) string {
	if len(b) < 3 {
		return ""
	}
	s, _ := decodeChars(b[3:], u16(b, 0), b[2]&0x01 != 0)
	return s
}

// decodeChars reads up to n characters and returns the bytes consumed.
// 8-bit characters are UTF-16 code units with the high byte dropped.
func decodeChars(b []byte, n int, wide bool) (string, int) {
	if !wide {
		n = min(n, len(b))
		runes := make([]rune, n)
		for i, c := range b[:n] {
			runes[i] = rune(c)
		}
		return string(runes), n
	}
	n = min(n, len(b)/2)
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units)), 2 * n
}

// parseSST reads the shared string table from the SST record and its
// CONTINUE records.
func parseSST(segs [][]byte) []string {
	if len(segs) == 0 || len(segs[0]) < 8 {
		return nil
	}
	count := int(binary.LittleEndian.Uint32(segs[0][4:]))
	c := &sstCursor{segs: segs, pos: 8}
	out := make([]string, 0, min(count, 1<<16))
	for range count {
		s, ok := c.readString()
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out
}

type sstCursor struct {
	segs [][]byte
	seg  int
	pos  int
}

// take returns the next n bytes. Fixed-size fields never straddle a
// CONTINUE boundary, so a short remainder moves to the next segment.
func (c *sstCursor) take(n int) ([]byte, bool) {
	if c.seg >= len(c.segs) {
		return nil, false
	}
	if c.pos+n > len(c.segs[c.seg]) {
		c.seg++
		c.pos = 0
		if c.seg >= len(c.segs) || n > len(c.segs[c.seg]) {
			return nil, false
		}
	}
	b := c.segs[c.seg][c.pos : c.pos+n]
	c.pos += n
	return b, true
}

func (c *sstCursor) skip(n int) {
	for n > 0 && c.seg < len(c.segs) {
		avail := len(c.segs[c.seg]) - c.pos
		if n < avail {
			c.pos += n
			return
		}
		n -= avail
		c.seg++
		c.pos = 0
	}
}

// readString decodes one XLUnicodeRichExtendedString. Character data split
// by a CONTINUE record resumes after a fresh option byte.
func (c *sstCursor) readString() (string, bool) {
	hdr, ok := c.take(3)
	if !ok {
		return "", false
	}
	n, opts := u16(hdr, 0), hdr[2]
	var runs, ext int
	if opts&0x08 != 0 {
		b, ok := c.take(2)
		if !ok {
			return "", false
		}
		runs = u16(b, 0)
	}
	if opts&0x04 != 0 {
		b, ok := c.take(4)
		if !ok {
			return "", false
		}
		ext = int(binary.LittleEndian.Uint32(b))
	}

	wide := opts&0x01 != 0
	var sb strings.Builder
	for n > 0 {
		if c.seg >= len(c.segs) {
			return "", false
		}
		seg := c.segs[c.seg]
		width := 1
		if wide {
			width = 2
		}
		if len(seg)-c.pos < width {
			c.seg++
			if c.seg >= len(c.segs) || len(c.segs[c.seg]) == 0 {
				return "", false
			}
			wide = c.segs[c.seg][0]&0x01 != 0
			c.pos = 1
			continue
		}
		k := min(n, (len(seg)-c.pos)/width)
		s, used := decodeChars(seg[c.pos:], k, wide)
		sb.WriteString(s)
		c.pos += used
		n -= k
	}
	c.skip(4*runs + ext)
	return sb.String(), true
}

// grid collects cells by position. Missing rows and cells stay empty.
type grid struct {
	rows [][]string
}

func (g *grid) set(row, col int, v string) {
	for len(g.rows) <= row {
		g.rows = append(g.rows, nil)
	}
	r := g.rows[row]
	for len(r) <= col {
		r = append(r, "")
	}
	r[col] = v
	g.rows[row] = r
}

func (g *grid) trimmed() [][]string {
	for i, r := range g.rows {
		g.rows[i] = trimTrailing(r)
	}
	return g.rows
}

func u16(b []byte, off int) int {
	return int(binary.LittleEndian.Uint16(b[off:]))
}
