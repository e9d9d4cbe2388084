// Package agent is a client for the line-oriented protocol to an
// external process that owns secret-key material. The core never
// touches a private key directly; every operation that needs one goes
// through a Conn, grounded on
// original_source/gnupg-2.1.6/g10/call-agent.c's assuan_transact call
// sites for the exact command and status-line vocabulary.
package agent

import (
	"bufio"
	"io"
	"strings"

	"nullprogram.com/x/opengpg-core/pgperr"
	"nullprogram.com/x/opengpg-core/pgplog"
)

// Conn is one bidirectional connection to the agent. It owns the
// framer state and the per-transaction inquiry dispatch table; it is
// not safe for concurrent use by multiple goroutines (the protocol is
// stateful: "one
// in-flight transaction per connection").
type Conn struct {
	rw      io.ReadWriter
	r       *bufio.Reader
	Inquiry InquiryHandler

	cacheNonce   string
	hijackWarned bool
}

// New wraps an already-open bidirectional stream (a unix socket, a
// pipe to a subprocess, or any io.ReadWriter a test can fake) as a Conn.
func New(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw, r: bufio.NewReader(rw), Inquiry: DefaultInquiryHandler}
}

// Reply is the parsed outcome of one transaction: concatenated D data,
// every S status line (keyword -> args, in arrival order), and any
// trailing OK comment.
type Reply struct {
	Data   []byte
	Status []StatusLine
	OKText string
}

// StatusLine is one `S <keyword> <args...>` line.
type StatusLine struct {
	Keyword string
	Args    []string
}

// Find returns the first status line with the given keyword.
func (r Reply) Find(keyword string) (StatusLine, bool) {
	for _, s := range r.Status {
		if s.Keyword == keyword {
			return s, true
		}
	}
	return StatusLine{}, false
}

func (c *Conn) writeLine(line string) error {
	pgplog.Log.Debug("agent>", "line", line)
	_, err := io.WriteString(c.rw, line+"\n")
	return err
}

// Transact sends one request line and reads the response, servicing
// any INQUIRE the agent raises via c.Inquiry, until a terminating OK
// or ERR line.
func (c *Conn) Transact(request string) (Reply, error) {
	if err := c.writeLine(request); err != nil {
		return Reply{}, pgperr.E("agent.Transact", pgperr.SourceAgent, pgperr.IO, "cause", err)
	}
	return c.readReply()
}

func (c *Conn) readReply() (Reply, error) {
	var reply Reply
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return Reply{}, pgperr.E("agent.readReply", pgperr.SourceAgent, pgperr.IO, "cause", err)
		}
		line = strings.TrimRight(line, "\r\n")
		pgplog.Log.Debug("agent<", "line", line)

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "D "):
			chunk, err := decodePercent(line[2:])
			if err != nil {
				return Reply{}, err
			}
			reply.Data = append(reply.Data, chunk...)
		case line == "D":
			// empty data line, nothing to append
		case strings.HasPrefix(line, "S "):
			fields := strings.SplitN(line[2:], " ", 2)
			sl := StatusLine{Keyword: fields[0]}
			if len(fields) == 2 {
				sl.Args = strings.Fields(fields[1])
			}
			reply.Status = append(reply.Status, sl)
		case strings.HasPrefix(line, "INQUIRE "):
			rest := strings.SplitN(line[len("INQUIRE "):], " ", 2)
			keyword := rest[0]
			var params []string
			if len(rest) == 2 {
				params = strings.Fields(rest[1])
			}
			if err := c.serviceInquiry(keyword, params); err != nil {
				return Reply{}, err
			}
		case line == "OK" || strings.HasPrefix(line, "OK "):
			if strings.HasPrefix(line, "OK ") {
				reply.OKText = line[len("OK "):]
			}
			return reply, nil
		case strings.HasPrefix(line, "ERR "):
			return Reply{}, parseAgentErr(line[len("ERR "):])
		default:
			return Reply{}, pgperr.E("agent.readReply", pgperr.SourceAgent, pgperr.AgentProtocol, "reason", "unrecognised line", "line", line)
		}
	}
}

func (c *Conn) serviceInquiry(keyword string, params []string) error {
	if c.Inquiry == nil {
		return c.cancelInquiry()
	}
	resp, err := c.Inquiry(keyword, params)
	if err != nil {
		return c.cancelInquiry()
	}
	if resp.Cancel {
		return c.cancelInquiry()
	}
	for _, chunk := range resp.Data {
		if err := c.writeLine("D " + encodePercent(chunk)); err != nil {
			return pgperr.E("agent.serviceInquiry", pgperr.SourceAgent, pgperr.IO, "cause", err)
		}
	}
	return c.writeLine("END")
}

func (c *Conn) cancelInquiry() error {
	if err := c.writeLine("CAN"); err != nil {
		return pgperr.E("agent.cancelInquiry", pgperr.SourceAgent, pgperr.IO, "cause", err)
	}
	return nil
}

// parseAgentErr decodes "ERR <code> <text>" into a pgperr.Error: code
// is a numeric composite of (source, kind).
func parseAgentErr(rest string) error {
	fields := strings.SplitN(rest, " ", 2)
	text := ""
	if len(fields) == 2 {
		text = fields[1]
	}
	return pgperr.E("agent.Transact", pgperr.SourceAgent, pgperr.AgentProtocol, "agent_code", fields[0], "text", text)
}

// Handshake proves the process on the other end of the socket is a
// genuine agent by sending GETINFO version and requiring a non-error
// reply, rather than relying on the legacy "anything but empty OK to
// AGENT_ID means hijacked" heuristic (which false-positives against
// conforming agents that answer unknown commands with a bare OK). It
// also negotiates agent-awareness, matching call-agent.c's own OPTION
// sequence.
func (c *Conn) Handshake() error {
	reply, err := c.Transact("GETINFO version")
	if err != nil {
		if !c.hijackWarned {
			c.hijackWarned = true
			pgplog.Log.Warn("agent did not answer GETINFO version; possible foreign process on the socket")
		}
		return pgperr.E("agent.Handshake", pgperr.SourceAgent, pgperr.AgentUnavailable, "cause", err)
	}
	if len(reply.Data) == 0 {
		return pgperr.E("agent.Handshake", pgperr.SourceAgent, pgperr.AgentUnavailable, "reason", "empty version reply")
	}
	if _, err := c.Transact("OPTION agent-awareness=2.1.0"); err != nil {
		return err
	}
	return nil
}

// Reset clears per-connection transient state.
func (c *Conn) Reset() error {
	_, err := c.Transact("RESET")
	return err
}

// Option negotiates a single key=value option.
func (c *Conn) Option(kv string) error {
	_, err := c.Transact("OPTION " + kv)
	return err
}

// GetInfo queries the agent (version, s2k_count, cmd_has_option ...).
func (c *Conn) GetInfo(what string) (string, error) {
	reply, err := c.Transact("GETINFO " + what)
	if err != nil {
		return "", err
	}
	return string(reply.Data), nil
}
