package notify

import "time"

// Request is a widget request of any kind. The command line, D-Bus and
// batch input all reduce to a Request before reaching the Manager.
type Request struct {
	Kind      Kind
	Title     string
	Content   string
	Icon      string
	SmallIcon string
	Number    string
	Color     string
	Colors    []ColorStop
	ColorTime time.Duration
	Timeout   time.Duration
	Buttons   []string
	Input     *Input
	Silent    bool
	Origin    Origin
}

// Show creates the widget described by req.
func (m *Manager) Show(req Request, cb Callback) (Ref, error) {
	var (
		id  int
		err error
	)
	switch req.Kind {
	case KindMessageBox:
		id, err = m.MessageBox(MessageBoxOptions{
			Title:   req.Title,
			Content: req.Content,
			Buttons: req.Buttons,
			Input:   req.Input,
			Silent:  req.Silent,
			Origin:  req.Origin,
		}, cb)
	case KindBigBox:
		id, err = m.BigBox(BigBoxOptions{
			Title:     req.Title,
			Content:   req.Content,
			Icon:      req.Icon,
			Number:    req.Number,
			Color:     req.Color,
			Colors:    req.Colors,
			ColorTime: req.ColorTime,
			Timeout:   req.Timeout,
			Silent:    req.Silent,
			Origin:    req.Origin,
		}, cb)
	case KindSmallBox:
		id, err = m.SmallBox(SmallBoxOptions{
			Title:     req.Title,
			Content:   req.Content,
			Icon:      req.Icon,
			SmallIcon: req.SmallIcon,
			Color:     req.Color,
			Colors:    req.Colors,
			ColorTime: req.ColorTime,
			Timeout:   req.Timeout,
			Silent:    req.Silent,
			Origin:    req.Origin,
		}, cb)
	default:
		return Ref{}, &ConfigurationError{Kind: req.Kind, Err: ErrUnknownKind}
	}
	return Ref{Kind: req.Kind, ID: id}, err
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
