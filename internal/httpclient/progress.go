package httpclient

import "io"

// ProgressFunc receives the upload percentage in [0, 100].
type ProgressFunc func(percent int)

// progressReader reports floor(sent*100/total) as the body is consumed.
// It only calls fn when the percentage grows.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	last  int
	fn    ProgressFunc
}

func newProgressReader(r io.Reader, total int64, fn ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, last: -1, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		pct := int(p.sent * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct > p.last {
			p.last = pct
			p.fn(pct)
		}
	}
	return n, err
}
