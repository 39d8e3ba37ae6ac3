package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/tebeka/selenium"
)

type fakeElement struct {
	text     string
	attrs    map[string]string
	clickErr error
	sent     []string
	cleared  int
	clicked  int
}

func (e *fakeElement) Click() error {
	if e.clickErr != nil {
		return e.clickErr
	}

	e.clicked++

	return nil
}

func (e *fakeElement) Clear() error {
	e.cleared++

	return nil
}

func (e *fakeElement) SendKeys(text string) error {
	e.sent = append(e.sent, text)

	return nil
}

func (e *fakeElement) Text() (string, error) {
	return e.text, nil
}

func (e *fakeElement) GetAttribute(name string) (string, error) {
	return e.attrs[name], nil
}

type fakeDriver struct {
	mu            sync.Mutex
	url           string
	navigateErr   error
	waitErr       error
	element       *fakeElement
	screenshotErr error
	quitErr       error
	quit          bool
}

func (d *fakeDriver) Navigate(url string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.navigateErr != nil {
		return d.navigateErr
	}

	d.url = url

	return nil
}

func (d *fakeDriver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.url, nil
}

func (d *fakeDriver) WaitForElement(_ models.SelectorType, _ string, _ bool, _ time.Duration) (Element, error) {
	if d.waitErr != nil {
		return nil, d.waitErr
	}

	if d.element == nil {
		return &fakeElement{}, nil
	}

	return d.element, nil
}

func (d *fakeDriver) Screenshot() ([]byte, error) {
	if d.screenshotErr != nil {
		return nil, d.screenshotErr
	}

	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (d *fakeDriver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.quit = true

	return d.quitErr
}

func (d *fakeDriver) isQuit() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.quit
}

type fakeFactory struct {
	mu      sync.Mutex
	drivers []*fakeDriver
	next    func() *fakeDriver
	err     error
}

func (f *fakeFactory) NewDriver(_ context.Context) (Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	d := &fakeDriver{}
	if f.next != nil {
		d = f.next()
	}

	f.drivers = append(f.drivers, d)

	return d, nil
}

func (f *fakeFactory) Endpoint() string {
	return "http://selenium-hub:4444/wd/hub"
}

func (f *fakeFactory) last() *fakeDriver {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.drivers[len(f.drivers)-1]
}

var errBoom = errors.New("boom")

func errBoomWith(code string) error {
	return &selenium.Error{Err: code, Message: "boom"}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()

	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t.Fatal(err)
	}

	return parsed
}
