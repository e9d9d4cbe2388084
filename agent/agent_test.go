package agent

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptConn feeds a fixed, pre-scripted sequence of response lines to a
// Conn's reader, and captures everything the Conn writes. It never
// reacts to what the Conn writes - every test here pre-determines the
// full canned reply up front, so there is no need for a live
// request/response round trip (and no risk of the two sides deadlocking
// on a synchronous pipe).
type scriptConn struct {
	in  *strings.Reader
	out bytes.Buffer
}

func (s *scriptConn) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *scriptConn) Write(p []byte) (int, error) { return s.out.Write(p) }

func newScriptConn(lines ...string) (*Conn, *scriptConn) {
	sc := &scriptConn{in: strings.NewReader(strings.Join(lines, "\n") + "\n")}
	return New(sc), sc
}

func TestTransactParsesDataStatusAndOK(t *testing.T) {
	c, _ := newScriptConn("D 2.2.27", "S SOMEFLAG 1", "OK")
	reply, err := c.Transact("GETINFO version")
	require.NoError(t, err)
	assert.Equal(t, "2.2.27", string(reply.Data))
	sl, ok := reply.Find("SOMEFLAG")
	require.True(t, ok)
	assert.Equal(t, []string{"1"}, sl.Args)
}

func TestTransactDecodesPercentEscapedData(t *testing.T) {
	c, _ := newScriptConn("D a%25b", "OK")
	reply, err := c.Transact("FOO")
	require.NoError(t, err)
	assert.Equal(t, "a%b", string(reply.Data))
}

func TestTransactParsesErr(t *testing.T) {
	c, _ := newScriptConn("ERR 67108922 No such key")
	_, err := c.Transact("BAD")
	assert.Error(t, err)
}

func TestTransactServicesInquiryWithData(t *testing.T) {
	c, sc := newScriptConn("INQUIRE KEYPARAM", "OK")
	c.Inquiry = func(keyword string, params []string) (InquiryResponse, error) {
		if keyword == InquiryKeyParam {
			return InquiryResponse{Data: [][]byte{[]byte("keyd")}}, nil
		}
		return InquiryResponse{Cancel: true}, nil
	}
	_, err := c.Transact("SIGN")
	require.NoError(t, err)
	assert.Contains(t, sc.out.String(), "D "+encodePercent([]byte("keyd")))
	assert.Contains(t, sc.out.String(), "END")
}

func TestTransactServicesInquiryCancel(t *testing.T) {
	c, sc := newScriptConn("INQUIRE PASSPHRASE", "OK")
	_, err := c.Transact("SIGN")
	require.NoError(t, err)
	assert.Contains(t, sc.out.String(), "CAN")
}

func TestTransactRejectsUnrecognisedLine(t *testing.T) {
	c, _ := newScriptConn("GARBAGE LINE")
	_, err := c.Transact("FOO")
	assert.Error(t, err)
}

func TestHandshakeSucceeds(t *testing.T) {
	c, _ := newScriptConn("D 2.2.27", "OK", "OK")
	require.NoError(t, c.Handshake())
}

func TestHandshakeFailsOnEmptyVersion(t *testing.T) {
	c, _ := newScriptConn("OK")
	err := c.Handshake()
	assert.Error(t, err)
}

func TestGetInfo(t *testing.T) {
	c, _ := newScriptConn("D 12345", "OK")
	got, err := c.GetInfo("pid")
	require.NoError(t, err)
	assert.Equal(t, "12345", got)
}

func TestReplyFindMissingKeyword(t *testing.T) {
	r := Reply{Status: []StatusLine{{Keyword: "A", Args: []string{"1"}}}}
	_, ok := r.Find("B")
	assert.False(t, ok)
}
