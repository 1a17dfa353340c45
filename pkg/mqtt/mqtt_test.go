package mqtt

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	testCases := []struct {
		topic   string
		pattern string
		match   bool
	}{
		{"s1/targets", "s1/targets", true},
		{"s1/targets", "+/targets", true},
		{"s1/meta", "+/targets", false},
		{"s1/targets", "#", true},
		{"s1/targets", "s1/#", true},
		{"s1", "s1/#", true},
		{"s2/targets", "s1/#", false},
		{"s1/targets/x", "+/targets", false},
		{"s1", "+/targets", false},
		{"s1/a/b", "s1/+/b", true},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.match, MatchTopic(tc.topic, tc.pattern), "%s ~ %s", tc.topic, tc.pattern)
	}
}

func TestClientOptionsFromURL(t *testing.T) {
	testCases := []struct {
		url    string
		server string
		prefix string
		user   string
		client string
	}{
		{"mqtt://localhost:1883/rd03d/", "tcp://localhost:1883", "rd03d/", "", ""},
		{"mqtt://localhost:1883/rd03d", "tcp://localhost:1883", "rd03d/", "", ""},
		{"mqtts://u:p@broker:8883/?client-id=abc", "ssl://broker:8883", "", "u", "abc"},
		{"ws://broker:80/a/b", "ws://broker:80", "a/b/", "", ""},
	}
	for _, tc := range testCases {
		opts, prefix, err := ClientOptionsFromURL(tc.url)
		require.NoError(t, err)
		require.Len(t, opts.Servers, 1)
		require.Equal(t, tc.server, opts.Servers[0].String())
		require.Equal(t, tc.prefix, prefix)
		require.Equal(t, tc.user, opts.Username)
		require.Equal(t, tc.client, opts.ClientID)
	}
}

func TestQueueHandlers(t *testing.T) {
	var got []string
	record := func(name string) Handler {
		return func(topic string, _ []byte) { got = append(got, name+":"+topic) }
	}
	q := &Queue{subs: map[string][]*Subscription{
		"s1/targets": {{handler: record("exact")}},
		"+/targets":  {{handler: record("wild")}},
		"s1/#":       {{handler: record("all")}},
	}}
	for _, h := range q.handlers("s1/targets") {
		h("s1/targets", nil)
	}
	require.ElementsMatch(t, []string{"exact:s1/targets", "wild:s1/targets", "all:s1/targets"}, got)

	got = nil
	for _, h := range q.handlers("s2/meta") {
		h("s2/meta", nil)
	}
	require.Empty(t, got)
}

func TestReadWriterTopics(t *testing.T) {
	rw := NewPacketReadWriter(nil).ForClient("s1")
	require.Equal(t, "s1/cmd", rw.PubTopic)
	require.Equal(t, []string{"s1/reply", "s1/targets"}, rw.SubTopics)
	rw = NewPacketReadWriter(nil).ForServer("s1")
	require.Equal(t, "s1/reply", rw.PubTopic)
	require.Equal(t, []string{"s1/cmd"}, rw.SubTopics)

	rw.handleMsg("s1/cmd", []byte{1, 2})
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, pkt)

	require.NoError(t, rw.Close())
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
	// dropped after close
	rw.handleMsg("s1/cmd", []byte{3})
}
