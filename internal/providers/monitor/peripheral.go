package monitor

import (
	"context"
	"math/bits"

	"github.com/GriffinCanCode/periphery/internal/capability"
	"github.com/GriffinCanCode/periphery/internal/terminal"
)

// Type is the capability type reported to scripts.
const Type = "monitor"

// Peripheral exposes a Monitor to scripts.
type Peripheral struct {
	monitor *Monitor
	table   capability.Table
}

var (
	_ capability.Capability = (*Peripheral)(nil)
	_ capability.Attachable = (*Peripheral)(nil)
)

// NewPeripheral wraps m. The method order below is part of the script
// contract.
func NewPeripheral(m *Monitor) *Peripheral {
	p := &Peripheral{monitor: m}
	p.table = capability.Table{
		{Name: "write", Handler: p.write},
		{Name: "scroll", Handler: p.scroll},
		{Name: "setCursorPos", Handler: p.setCursorPos},
		{Name: "setCursorBlink", Handler: p.setCursorBlink},
		{Name: "getCursorPos", Handler: p.getCursorPos},
		{Name: "getSize", Handler: p.getSize},
		{Name: "clear", Handler: p.clear},
		{Name: "clearLine", Handler: p.clearLine},
		{Name: "setTextScale", Handler: p.setTextScale},
		{Name: "setTextColour", Handler: p.setTextColour},
		{Name: "setTextColor", Handler: p.setTextColour},
		{Name: "setBackgroundColour", Handler: p.setBackgroundColour},
		{Name: "setBackgroundColor", Handler: p.setBackgroundColour},
		{Name: "isColour", Handler: p.isColour},
		{Name: "isColor", Handler: p.isColour},
		{Name: "getTextColour", Handler: p.getTextColour},
		{Name: "getTextColor", Handler: p.getTextColour},
		{Name: "getBackgroundColour", Handler: p.getBackgroundColour},
		{Name: "getBackgroundColor", Handler: p.getBackgroundColour},
		{Name: "blit", Handler: p.blit},
		{Name: "setPaletteColour", Handler: p.setPaletteColour},
		{Name: "setPaletteColor", Handler: p.setPaletteColour},
		{Name: "getPaletteColour", Handler: p.getPaletteColour},
		{Name: "getPaletteColor", Handler: p.getPaletteColour},
		{Name: "getTextScale", Handler: p.getTextScale},
		{Name: "getCursorBlink", Handler: p.getCursorBlink},
		{Name: "setGraphicsMode", Handler: p.setGraphicsMode},
		{Name: "getGraphicsMode", Handler: p.getGraphicsMode},
		{Name: "setPixel", Handler: p.setPixel},
		{Name: "getPixel", Handler: p.getPixel},
	}
	return p
}

// Type returns "monitor".
func (p *Peripheral) Type() string {
	return Type
}

// MethodNames returns the method table in dispatch order.
func (p *Peripheral) MethodNames() []string {
	return p.table.Names()
}

// Call dispatches method by index.
func (p *Peripheral) Call(ctx context.Context, computer capability.Computer, method int, args capability.Arguments) ([]any, error) {
	return p.table.Dispatch(ctx, computer, method, args)
}

// Monitor returns the device behind the capability.
func (p *Peripheral) Monitor() *Monitor {
	return p.monitor
}

// Attach registers computer with the monitor so it receives events.
func (p *Peripheral) Attach(computer capability.Computer) {
	p.monitor.AddComputer(computer)
}

// Detach stops event delivery to computer.
func (p *Peripheral) Detach(computer capability.Computer) {
	p.monitor.RemoveComputer(computer)
}

func (p *Peripheral) terminal() (*terminal.Terminal, error) {
	term := p.monitor.Terminal()
	if term == nil {
		return nil, capability.Statef("Monitor has been detached")
	}
	return term, nil
}

// parseColour decodes a colour bit mask to an index using its highest set
// bit.
func parseColour(args capability.Arguments, i int) (int, error) {
	mask, err := args.Int(i)
	if err != nil {
		return 0, err
	}
	if mask <= 0 {
		return 0, capability.Argumentf("Colour out of range")
	}
	c := bits.Len64(uint64(mask)) - 1
	if c > 15 {
		return 0, capability.Argumentf("Colour out of range")
	}
	return c, nil
}

// parsePixelColour accepts only a single-bit mask.
func parsePixelColour(args capability.Arguments, i int) (int, error) {
	mask, err := args.Int(i)
	if err != nil {
		return 0, err
	}
	if mask <= 0 || bits.OnesCount64(uint64(mask)) != 1 {
		return 0, capability.Argumentf("Colour out of range")
	}
	c := bits.TrailingZeros64(uint64(mask))
	if c > 15 {
		return 0, capability.Argumentf("Colour out of range")
	}
	return c, nil
}

func encodeColour(c int) []any {
	return capability.Results(1 << c)
}

func (p *Peripheral) write(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.WriteAdvance(args.Text(0))
	return nil, nil
}

func (p *Peripheral) scroll(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	n, err := args.Int(0)
	if err != nil {
		return nil, err
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.Scroll(n)
	return nil, nil
}

func (p *Peripheral) setCursorPos(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	x, err := args.Int(0)
	if err != nil {
		return nil, err
	}
	y, err := args.Int(1)
	if err != nil {
		return nil, err
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.SetCursorPos(x-1, y-1)
	return nil, nil
}

func (p *Peripheral) setCursorBlink(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	blink, err := args.Bool(0)
	if err != nil {
		return nil, err
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.SetCursorBlink(blink)
	return nil, nil
}

func (p *Peripheral) getCursorPos(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	x, y := term.CursorPos()
	return capability.Results(x+1, y+1), nil
}

func (p *Peripheral) getSize(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	w, h := term.Size()
	return capability.Results(w, h), nil
}

func (p *Peripheral) clear(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.Clear()
	return nil, nil
}

func (p *Peripheral) clearLine(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.ClearLine()
	return nil, nil
}

func (p *Peripheral) setTextScale(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	scale, err := args.Real(0)
	if err != nil {
		return nil, err
	}
	half := int(scale * 2)
	if half < MinTextScale || half > MaxTextScale {
		return nil, capability.Argumentf("Expected number in range 0.5-5")
	}
	if _, err := p.terminal(); err != nil {
		return nil, err
	}
	p.monitor.SetTextScale(half)
	return nil, nil
}

func (p *Peripheral) getTextScale(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	if _, err := p.terminal(); err != nil {
		return nil, err
	}
	return capability.Results(float64(p.monitor.TextScale()) / 2), nil
}

func (p *Peripheral) setTextColour(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	c, err := parseColour(args, 0)
	if err != nil {
		return nil, err
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.SetTextColour(c)
	return nil, nil
}

func (p *Peripheral) setBackgroundColour(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	c, err := parseColour(args, 0)
	if err != nil {
		return nil, err
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.SetBackgroundColour(c)
	return nil, nil
}

func (p *Peripheral) isColour(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	if _, err := p.terminal(); err != nil {
		return nil, err
	}
	return capability.Results(p.monitor.IsColour()), nil
}

func (p *Peripheral) getTextColour(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	return encodeColour(term.TextColour()), nil
}

func (p *Peripheral) getBackgroundColour(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	return encodeColour(term.BackgroundColour()), nil
}

func (p *Peripheral) blit(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	text, err := args.String(0)
	if err != nil {
		return nil, err
	}
	fg, err := args.String(1)
	if err != nil {
		return nil, err
	}
	bg, err := args.String(2)
	if err != nil {
		return nil, err
	}
	n := len([]rune(text))
	if len([]rune(fg)) != n || len([]rune(bg)) != n {
		return nil, capability.Argumentf("Arguments must be the same length")
	}
	if !terminal.IsColourString(fg) || !terminal.IsColourString(bg) {
		return nil, capability.Argumentf("Invalid colour string")
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.BlitAdvance(text, fg, bg)
	return nil, nil
}

func (p *Peripheral) setPaletteColour(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	c, err := parseColour(args, 0)
	if err != nil {
		return nil, err
	}
	var rgb [3]float64
	if args.Len() == 2 {
		hex, err := args.Int(1)
		if err != nil {
			return nil, err
		}
		rgb = terminal.DecodeRGB8(hex)
	} else {
		for i := range rgb {
			if rgb[i], err = args.Real(i + 1); err != nil {
				return nil, err
			}
		}
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.SetPaletteColour(15-c, rgb[0], rgb[1], rgb[2])
	return nil, nil
}

func (p *Peripheral) getPaletteColour(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	c, err := parseColour(args, 0)
	if err != nil {
		return nil, err
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	rgb, _ := term.PaletteColour(15 - c)
	return capability.Results(rgb[0], rgb[1], rgb[2]), nil
}

func (p *Peripheral) getCursorBlink(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	return capability.Results(term.CursorBlink()), nil
}

func (p *Peripheral) setGraphicsMode(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	on, err := args.Bool(0)
	if err != nil {
		return nil, err
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	term.SwitchGraphicsMode(on)
	return nil, nil
}

func (p *Peripheral) getGraphicsMode(context.Context, capability.Computer, capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	return capability.Results(term.GraphicsMode()), nil
}

// pixelPos validates zero-based sub-cell coordinates against the plane.
func pixelPos(term *terminal.Terminal, args capability.Arguments) (int, int, error) {
	x, err := args.Int(0)
	if err != nil {
		return 0, 0, err
	}
	y, err := args.Int(1)
	if err != nil {
		return 0, 0, err
	}
	w, h := term.Size()
	if x < 0 || y < 0 || x >= w*terminal.PixelColumnsPerCell || y >= h*terminal.PixelRowsPerCell {
		return 0, 0, capability.Argumentf("Position %d, %d out of bounds", x, y)
	}
	return x, y, nil
}

func (p *Peripheral) setPixel(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	c, err := parsePixelColour(args, 2)
	if err != nil {
		return nil, err
	}
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	x, y, err := pixelPos(term, args)
	if err != nil {
		return nil, err
	}
	term.SetPixel(x, y, c)
	return nil, nil
}

func (p *Peripheral) getPixel(_ context.Context, _ capability.Computer, args capability.Arguments) ([]any, error) {
	term, err := p.terminal()
	if err != nil {
		return nil, err
	}
	x, y, err := pixelPos(term, args)
	if err != nil {
		return nil, err
	}
	c, _ := term.Pixel(x, y)
	return encodeColour(c), nil
}
