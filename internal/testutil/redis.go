// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is an in-memory server speaking the RESP2 subset the caches use:
// GET, SET, DEL, SADD, SREM, SMEMBERS and PING. Anything else, HELLO
// included, gets an error reply so clients stay on RESP2.
type Redis struct {
	ln net.Listener

	mu      sync.Mutex
	strings map[string]string
	sets    map[string]map[string]bool
	ttls    map[string]time.Duration
}

// NewRedis starts a server on a loopback port and returns it with a
// connected client. Both are closed when the test ends.
func NewRedis(t *testing.T) (*Redis, *redis.Client) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Redis{
		ln:      ln,
		strings: map[string]string{},
		sets:    map[string]map[string]bool{},
		ttls:    map[string]time.Duration{},
	}
	go s.serve()
	client := redis.NewClient(&redis.Options{
		Addr:            ln.Addr().String(),
		Protocol:        2,
		DisableIdentity: true,
	})
	t.Cleanup(func() {
		client.Close()
		ln.Close()
	})
	return s, client
}

// Has reports whether key holds a string value.
func (s *Redis) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.strings[key]
	return ok
}

// TTL returns the expiry given with the last SET of key, zero for none.
func (s *Redis) TTL(key string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ttls[key]
}

// Members returns the sorted members of a set.
func (s *Redis) Members(key string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedMembers(s.sets[key])
}

func (s *Redis) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Redis) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		s.exec(w, args)
		if r.Buffered() == 0 {
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("resp: want array, got %q", line)
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		hdr, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if !strings.HasPrefix(hdr, "$") {
			return nil, fmt.Errorf("resp: want bulk string, got %q", hdr)
		}
		size, err := strconv.Atoi(hdr[1:])
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size+2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:size]))
	}
	return args, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Redis) exec(w *bufio.Writer, args []string) {
	if len(args) == 0 {
		w.WriteString("-ERR empty command\r\n")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd := strings.ToUpper(args[0])
	want := map[string]int{"GET": 2, "SET": 3, "DEL": 2, "SADD": 3, "SREM": 3, "SMEMBERS": 2}
	if n, ok := want[cmd]; ok && len(args) < n {
		fmt.Fprintf(w, "-ERR wrong number of arguments for '%s' command\r\n", strings.ToLower(cmd))
		return
	}
	switch cmd {
	case "PING":
		w.WriteString("+PONG\r\n")
	case "GET":
		v, ok := s.strings[args[1]]
		if !ok {
			w.WriteString("$-1\r\n")
			return
		}
		writeBulk(w, v)
	case "SET":
		s.strings[args[1]] = args[2]
		s.ttls[args[1]] = expiry(args[3:])
		w.WriteString("+OK\r\n")
	case "DEL":
		n := 0
		for _, k := range args[1:] {
			if _, ok := s.strings[k]; ok {
				delete(s.strings, k)
				delete(s.ttls, k)
				n++
			}
			if _, ok := s.sets[k]; ok {
				delete(s.sets, k)
				n++
			}
		}
		fmt.Fprintf(w, ":%d\r\n", n)
	case "SADD":
		set := s.sets[args[1]]
		if set == nil {
			set = map[string]bool{}
			s.sets[args[1]] = set
		}
		n := 0
		for _, m := range args[2:] {
			if !set[m] {
				set[m] = true
				n++
			}
		}
		fmt.Fprintf(w, ":%d\r\n", n)
	case "SREM":
		set := s.sets[args[1]]
		n := 0
		for _, m := range args[2:] {
			if set[m] {
				delete(set, m)
				n++
			}
		}
		if set != nil && len(set) == 0 {
			delete(s.sets, args[1])
		}
		fmt.Fprintf(w, ":%d\r\n", n)
	case "SMEMBERS":
		members := sortedMembers(s.sets[args[1]])
		fmt.Fprintf(w, "*%d\r\n", len(members))
		for _, m := range members {
			writeBulk(w, m)
		}
	default:
		fmt.Fprintf(w, "-ERR unknown command '%s'\r\n", args[0])
	}
}

// expiry reads the EX or PX option of a SET.
func expiry(opts []string) time.Duration {
	for i := 0; i+1 < len(opts); i++ {
		n, err := strconv.ParseInt(opts[i+1], 10, 64)
		if err != nil {
			continue
		}
		switch strings.ToUpper(opts[i]) {
		case "EX":
			return time.Duration(n) * time.Second
		case "PX":
			return time.Duration(n) * time.Millisecond
		}
	}
	return 0
}

func writeBulk(w *bufio.Writer, v string) {
	fmt.Fprintf(w, "$%d\r\n%s\r\n", len(v), v)
}

func sortedMembers(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
