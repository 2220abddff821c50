package extsort

import (
	"tpchjoin/blockio"
	"tpchjoin/pagecodec"
	"tpchjoin/schema"
	"tpchjoin/stats"
	"tpchjoin/types"
)

// runCursor streams one sorted run file record by record, decoding a
// page at a time and re-extracting each record's key so the merge
// step never has to carry it separately. It is the "one decoded
// record + readahead position per side" §4.8's two-way merge step
// calls for.
type runCursor struct {
	reader  *blockio.TableReader
	tag     string
	keyName string

	current []types.Record
	pos     int
	done    bool
}

func newRunCursor(path string, blockSize int, tag, keyName string, st *stats.Statistics) (*runCursor, error) {
	reader, err := blockio.NewTableReader(path, blockSize, st)
	if err != nil {
		return nil, err
	}
	c := &runCursor{reader: reader, tag: tag, keyName: keyName}
	if err := c.fillFromNextPage(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *runCursor) fillFromNextPage() error {
	for {
		page, ok, err := c.reader.ReadBlock()
		if err != nil {
			return err
		}
		if !ok {
			c.done = true
			c.current = nil
			c.pos = 0
			return nil
		}
		recs, err := pagecodec.All(page)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			continue // an empty page shouldn't exist, but skip rather than stall
		}
		c.current = recs
		c.pos = 0
		return nil
	}
}

func (c *runCursor) hasMore() bool {
	return !c.done
}

func (c *runCursor) record() types.Record {
	return c.current[c.pos]
}

func (c *runCursor) key() int {
	k, err := schema.ExtractIntKey(c.current[c.pos], c.tag, c.keyName)
	if err != nil {
		return 0
	}
	return k
}

// advance moves to the next record, pulling the next page and
// resetting position when the current page is exhausted, per §4.8's
// "next record from the current decoded page, otherwise read the next
// page and reset its iterator".
func (c *runCursor) advance() error {
	c.pos++
	if c.pos < len(c.current) {
		return nil
	}
	return c.fillFromNextPage()
}

func (c *runCursor) Close() error {
	return c.reader.Close()
}

// outputCursor is the merge step's write side: one working output
// page flushed on rejection, same discipline as join's outputBuffer
// but kept local to this package to avoid a join->extsort dependency
// cycle (join itself depends on extsort for sort-merge join).
type outputCursor struct {
	page   *pagecodec.Page
	writer *blockio.TableWriter
}

func newOutputCursor(writer *blockio.TableWriter, pageSize int) *outputCursor {
	return &outputCursor{page: pagecodec.NewPage(pageSize), writer: writer}
}

func (o *outputCursor) emit(rec types.Record) error {
	if pagecodec.Append(o.page, rec) {
		return nil
	}
	if _, err := o.writer.WriteBlock(o.page); err != nil {
		return err
	}
	pagecodec.Clear(o.page)
	if !pagecodec.Append(o.page, rec) {
		return errRecordTooLarge()
	}
	return nil
}

func (o *outputCursor) flush() error {
	if pagecodec.IsEmpty(o.page) {
		return nil
	}
	_, err := o.writer.WriteBlock(o.page)
	return err
}
