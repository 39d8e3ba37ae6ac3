// Package browser manages a bounded pool of remote WebDriver sessions.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/models"
)

var (
	// ErrTimeout is returned by a Driver when a page load or element wait exceeds its budget.
	ErrTimeout = errors.New("webdriver timeout")

	// ErrNotInteractable is returned when an element exists but cannot receive the action.
	ErrNotInteractable = errors.New("element not interactable")
)

// Driver is a single remote browser.
type Driver interface {
	// Navigate loads url and waits until the document is ready.
	Navigate(url string, timeout time.Duration) error
	CurrentURL() (string, error)
	// WaitForElement polls until the element is present, and also displayed and
	// enabled when interactable is set.
	WaitForElement(by models.SelectorType, selector string, interactable bool, timeout time.Duration) (Element, error)
	Screenshot() ([]byte, error)
	Quit() error
}

type Element interface {
	Click() error
	Clear() error
	SendKeys(text string) error
	Text() (string, error)
	GetAttribute(name string) (string, error)
}

// DriverFactory opens new remote browsers.
type DriverFactory interface {
	NewDriver(ctx context.Context) (Driver, error)
	Endpoint() string
}
