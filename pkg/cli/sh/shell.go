package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/rd03d/pkg/env"
	fx "github.com/robotalks/rd03d/pkg/framework"
	"github.com/robotalks/rd03d/pkg/mqtt"
	"github.com/robotalks/rd03d/pkg/stream"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// Timeout bounds each command.
	Timeout time.Duration
	// Target is connected by Run when set.
	Target string

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is an attached sensor.
type Conn struct {
	Name       string
	Controller Controller

	cancel func()
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds registers more commands, used during init.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     3 * time.Second,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context, ctrl Controller)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c, s.Conn.Controller)
	}
}

// Context returns a context bounded by the command timeout.
func (s *Shell) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

// Print prints v as JSON if requested, otherwise text.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Attach makes ctrl the current sensor. closer, if not nil, is closed on
// Disconnect.
func (s *Shell) Attach(name string, ctrl Controller, closer io.Closer) {
	s.Disconnect()
	s.Conn = &Conn{Name: name, Controller: ctrl, cancel: func() {
		if closer != nil {
			closer.Close()
		}
	}}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
}

// Connect connects a sensor by websocket URL or by its ID on MQTT.
func (s *Shell) Connect(target string) error {
	ctx, cancel := context.WithCancel(context.Background())
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		client, err := stream.Dial(target)
		if err != nil {
			cancel()
			return err
		}
		go stream.RunClient(ctx, client)
		s.Attach(target, client, closerFunc(func() error {
			cancel()
			return nil
		}))
		return nil
	}
	connector, err := mqtt.NewConnector(s.Config.MQTTURL)
	if err != nil {
		cancel()
		return err
	}
	client, err := connector.Connect(ctx, target)
	if err != nil {
		cancel()
		return err
	}
	go fx.RunWithContextCloser(ctx, client, func() error {
		return client.Run(ctx)
	})
	s.Attach(target, client, closerFunc(func() error {
		cancel()
		return nil
	}))
	return nil
}

// Discover lists sensors registered on MQTT.
func (s *Shell) Discover() ([]mqtt.Meta, error) {
	connector, err := mqtt.NewConnector(s.Config.MQTTURL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.Context()
	defer cancel()
	return connector.Discover(ctx)
}

// Disconnect disconnects current sensor.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.cancel()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.Target != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Target)
		}
		if err := s.Connect(s.Target); err != nil {
			log.Fatalf("connect %q failed: %v", s.Target, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// FormatMeta prints Meta into friendly string for display.
func FormatMeta(meta mqtt.Meta) string {
	str := meta.ID
	if meta.Port != "" {
		str += " [" + meta.Port + "]"
	}
	if meta.Description != "" {
		str += ": " + meta.Description
	}
	return str
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var (
	// DiscoverCmd discovers sensors.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			metas, err := s.Discover()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if metas == nil {
					metas = []mqtt.Meta{}
				}
				s.Print(c, metas, "")
				return
			}
			if len(metas) == 0 {
				c.Println("No sensors found")
				return
			}
			for _, meta := range metas {
				c.Println(FormatMeta(meta))
			}
		},
	}

	// ConnectCmd connects a sensor.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "ID|ws://host:port/cmd",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			target := ""
			if len(c.Args) > 0 {
				target = c.Args[0]
			} else {
				metas, err := s.Discover()
				if err != nil {
					c.Err(err)
					return
				}
				switch {
				case len(metas) == 0:
					c.Err(fmt.Errorf("no sensor discovered"))
					return
				case len(metas) == 1:
					target = metas[0].ID
				case !s.Interactive:
					c.Err(fmt.Errorf("more than 1 sensors discovered in non-interactive mode"))
					return
				default:
					items := make([]string, len(metas))
					for n, meta := range metas {
						items[n] = FormatMeta(meta)
					}
					target = metas[s.Shell.MultiChoice(items, "Which one to connect?")].ID
				}
			}
			if err := s.Connect(target); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current sensor.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)
