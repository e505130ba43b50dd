package logs_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"logtail/internal/logs"
)

func TestLastLinesReturnsTrailingLines(t *testing.T) {
	g := NewWithT(t)
	src := newMemSource()
	writeFile(t, src.fs, "app.log", "alpha\nbeta\ngamma\ndelta\n")

	result, err := logs.NewReader(src, 4).LastLines("app.log", 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.Lines).To(Equal([]string{"gamma", "delta"}))
	g.Expect(result.Offset).To(Equal(int64(len("alpha\nbeta\ngamma\ndelta\n"))))
}

func TestLastLinesFewerLinesThanRequested(t *testing.T) {
	g := NewWithT(t)
	src := newMemSource()
	writeFile(t, src.fs, "a.log", "a\nb\n")

	result, err := logs.NewReader(src, 0).LastLines("a.log", 10)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.Lines).To(Equal([]string{"a", "b"}))
	g.Expect(result.Offset).To(Equal(int64(4)))
}

func TestLastLinesIncludesUnterminatedTail(t *testing.T) {
	g := NewWithT(t)
	src := newMemSource()
	writeFile(t, src.fs, "a.log", "one\ntwo\nthr")

	result, err := logs.NewReader(src, 3).LastLines("a.log", 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.Lines).To(Equal([]string{"two", "thr"}))
	g.Expect(result.Offset).To(Equal(int64(11)))
}

func TestLastLinesSkipsBlankAndTrimsWhitespace(t *testing.T) {
	g := NewWithT(t)
	src := newMemSource()
	writeFile(t, src.fs, "a.log", "first\r\n\n   \n  second  \r\n\n")

	result, err := logs.NewReader(src, 5).LastLines("a.log", 5)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.Lines).To(Equal([]string{"first", "second"}))
}

func TestLastLinesEmptyAndZero(t *testing.T) {
	g := NewWithT(t)
	src := newMemSource()
	writeFile(t, src.fs, "empty.log", "")
	writeFile(t, src.fs, "full.log", "x\ny\n")
	reader := logs.NewReader(src, 0)

	result, err := reader.LastLines("empty.log", 10)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.Lines).To(BeEmpty())
	g.Expect(result.Lines).NotTo(BeNil())
	g.Expect(result.Offset).To(BeZero())

	result, err = reader.LastLines("full.log", 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.Lines).To(BeEmpty())
	g.Expect(result.Offset).To(Equal(int64(4)))
}

func TestLastLinesMissingFile(t *testing.T) {
	g := NewWithT(t)
	_, err := logs.NewReader(newMemSource(), 0).LastLines("nope.log", 10)
	g.Expect(errors.Is(err, logs.ErrNotFound)).To(BeTrue(), "got %v", err)
}

func TestLastLinesDirectoryIsIOError(t *testing.T) {
	g := NewWithT(t)
	src := newMemSource()
	g.Expect(src.fs.MkdirAll("dir", 0o755)).To(Succeed())

	_, err := logs.NewReader(src, 0).LastLines("dir", 10)
	var ioErr *logs.IOError
	g.Expect(errors.As(err, &ioErr)).To(BeTrue(), "got %v", err)
	g.Expect(ioErr.ErrorKind()).To(Equal("io_error"))
}

func TestLastLinesLineLongerThanChunk(t *testing.T) {
	g := NewWithT(t)
	src := newMemSource()
	long := strings.Repeat("z", 50)
	writeFile(t, src.fs, "a.log", "head\n"+long+"\nshort\n")

	result, err := logs.NewReader(src, 7).LastLines("a.log", 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.Lines).To(Equal([]string{long, "short"}))
}

// Every chunk size must agree with a plain split of the whole file.
func TestLastLinesMatchesNaiveSplitForAllChunkSizes(t *testing.T) {
	g := NewWithT(t)
	src := newMemSource()
	var b strings.Builder
	for i := 0; i < 40; i++ {
		if i%7 == 3 {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "line-%02d %s\n", i, strings.Repeat("#", i%5))
	}
	b.WriteString("tail-fragment")
	content := b.String()
	writeFile(t, src.fs, "a.log", content)

	var all []string
	for _, piece := range strings.Split(content, "\n") {
		if s := strings.TrimSpace(piece); s != "" {
			all = append(all, s)
		}
	}

	for chunk := 1; chunk <= 40; chunk++ {
		for _, n := range []int{1, 5, 17, len(all), len(all) + 3} {
			want := all
			if n < len(all) {
				want = all[len(all)-n:]
			}
			result, err := logs.NewReader(src, chunk).LastLines("a.log", n)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(result.Lines).To(Equal(want), "chunk=%d n=%d", chunk, n)
		}
	}
}
