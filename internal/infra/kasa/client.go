package kasa

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/mohitagr18/mcp-home-automation/internal/domain"
)

// defaultPort is the TCP port the plug firmware listens on.
const defaultPort = "9999"

// initialKey seeds the autokey XOR obfuscation used by the firmware.
const initialKey = byte(171)

// Dialer opens the TCP connection to the device. Injectable for tests.
type Dialer func(ctx context.Context, network, addr string) (net.Conn, error)

// Client speaks the TP-Link smart-plug LAN protocol: length-prefixed,
// XOR-obfuscated JSON over a short-lived TCP connection per command.
type Client struct {
	timeout time.Duration
	dial    Dialer
}

func NewClient(timeout time.Duration) *Client {
	d := &net.Dialer{}
	return NewClientWithDialer(timeout, d.DialContext)
}

func NewClientWithDialer(timeout time.Duration, dial Dialer) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{timeout: timeout, dial: dial}
}

// Plug is one handle to the device, holding its last-observed state.
type Plug struct {
	client *Client
	addr   string

	info domain.Device
}

// NewPlug binds a handle to addr without touching the network. Call Update
// to connect and populate the initial state.
func (c *Client) NewPlug(addr string) *Plug {
	return &Plug{client: c, addr: addr, info: domain.Device{Addr: addr}}
}

type sysinfo struct {
	ErrCode    int    `json:"err_code"`
	Alias      string `json:"alias"`
	Model      string `json:"model"`
	SWVer      string `json:"sw_ver"`
	HWVer      string `json:"hw_ver"`
	RelayState int    `json:"relay_state"`
}

type sysinfoResponse struct {
	System struct {
		GetSysinfo sysinfo `json:"get_sysinfo"`
	} `json:"system"`
}

type relayResponse struct {
	System struct {
		SetRelayState struct {
			ErrCode int `json:"err_code"`
		} `json:"set_relay_state"`
	} `json:"system"`
}

// Update re-queries the device for current state, confirming the connection
// is alive.
func (p *Plug) Update(ctx context.Context) error {
	var resp sysinfoResponse
	if err := p.client.exchange(ctx, p.addr, `{"system":{"get_sysinfo":{}}}`, &resp); err != nil {
		return err
	}

	info := resp.System.GetSysinfo
	if info.ErrCode != 0 {
		return domain.ProtocolError(fmt.Sprintf("get_sysinfo returned err_code %d", info.ErrCode), nil)
	}

	p.info = domain.Device{
		Alias: info.Alias,
		Addr:  p.addr,
		IsOn:  info.RelayState == 1,
		Model: info.Model,
		SWVer: info.SWVer,
		HWVer: info.HWVer,
	}
	return nil
}

func (p *Plug) TurnOn(ctx context.Context) error {
	return p.setRelayState(ctx, 1)
}

func (p *Plug) TurnOff(ctx context.Context) error {
	return p.setRelayState(ctx, 0)
}

func (p *Plug) setRelayState(ctx context.Context, state int) error {
	payload := fmt.Sprintf(`{"system":{"set_relay_state":{"state":%d}}}`, state)

	var resp relayResponse
	if err := p.client.exchange(ctx, p.addr, payload, &resp); err != nil {
		return err
	}

	if code := resp.System.SetRelayState.ErrCode; code != 0 {
		return domain.ProtocolError(fmt.Sprintf("set_relay_state returned err_code %d", code), nil)
	}
	return nil
}

// Device returns the state observed by the most recent successful Update.
func (p *Plug) Device() domain.Device {
	return p.info
}

func (c *Client) exchange(ctx context.Context, addr, payload string, out any) error {
	hostport := addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		hostport = net.JoinHostPort(addr, defaultPort)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx, "tcp", hostport)
	if err != nil {
		return domain.NetworkError("connecting to "+hostport, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	obfuscate([]byte(payload), frame[4:])
	if _, err := conn.Write(frame); err != nil {
		return domain.NetworkError("sending command to "+hostport, err)
	}

	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return domain.NetworkError("reading response from "+hostport, err)
	}
	body := make([]byte, binary.BigEndian.Uint32(header[:]))
	if _, err := io.ReadFull(conn, body); err != nil {
		return domain.NetworkError("reading response from "+hostport, err)
	}

	deobfuscate(body)
	if err := json.Unmarshal(body, out); err != nil {
		return domain.ProtocolError("parsing device response", err)
	}
	return nil
}

// obfuscate writes the XOR-autokey form of src into dst: each plaintext byte
// is XORed with the previous ciphertext byte, starting from initialKey.
func obfuscate(src, dst []byte) {
	key := initialKey
	for i, b := range src {
		key ^= b
		dst[i] = key
	}
}

// deobfuscate reverses obfuscate in place.
func deobfuscate(buf []byte) {
	key := initialKey
	for i, b := range buf {
		buf[i] = key ^ b
		key = b
	}
}
