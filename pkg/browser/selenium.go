package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// DefaultChromeArgs run Chrome headless friendly inside a grid container.
var DefaultChromeArgs = []string{
	"--no-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--window-size=1920,1080",
	"--disable-extensions",
	"--disable-plugins",
}

var selectorBy = map[models.SelectorType]string{
	models.SelectorCSS:             selenium.ByCSSSelector,
	models.SelectorXPath:           selenium.ByXPATH,
	models.SelectorID:              selenium.ByID,
	models.SelectorName:            selenium.ByName,
	models.SelectorClass:           selenium.ByClassName,
	models.SelectorTag:             selenium.ByTagName,
	models.SelectorLinkText:        selenium.ByLinkText,
	models.SelectorPartialLinkText: selenium.ByPartialLinkText,
}

// SeleniumFactory opens Chrome sessions on a Selenium hub.
type SeleniumFactory struct {
	hubURL string
	args   []string
}

func NewSeleniumFactory(hubURL string, args ...string) *SeleniumFactory {
	if len(args) == 0 {
		args = DefaultChromeArgs
	}

	return &SeleniumFactory{hubURL: hubURL, args: args}
}

func (f *SeleniumFactory) Endpoint() string {
	return f.hubURL
}

func (f *SeleniumFactory) NewDriver(ctx context.Context) (Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{Args: f.args})

	wd, err := selenium.NewRemote(caps, f.hubURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to selenium hub %s: %w", f.hubURL, err)
	}

	return &seleniumDriver{wd: wd}, nil
}

type seleniumDriver struct {
	wd selenium.WebDriver
}

func (d *seleniumDriver) Navigate(url string, timeout time.Duration) error {
	err := d.wd.SetPageLoadTimeout(timeout)
	if err != nil {
		return mapSeleniumError(err)
	}

	err = d.wd.Get(url)
	if err != nil {
		return mapSeleniumError(err)
	}

	err = d.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		state, err := wd.ExecuteScript("return document.readyState", nil)
		if err != nil {
			return false, nil
		}

		return state == "complete", nil
	}, timeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return nil
}

func (d *seleniumDriver) CurrentURL() (string, error) {
	return d.wd.CurrentURL()
}

func (d *seleniumDriver) WaitForElement(
	by models.SelectorType,
	selector string,
	interactable bool,
	timeout time.Duration,
) (Element, error) {
	using, ok := selectorBy[by]
	if !ok {
		return nil, fmt.Errorf("invalid selector type: %s", by)
	}

	var found selenium.WebElement

	err := d.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(using, selector)
		if err != nil {
			return false, nil
		}

		if interactable {
			displayed, _ := el.IsDisplayed()
			enabled, _ := el.IsEnabled()

			if !displayed || !enabled {
				return false, nil
			}
		}

		found = el

		return true, nil
	}, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return &seleniumElement{el: found}, nil
}

func (d *seleniumDriver) Screenshot() ([]byte, error) {
	return d.wd.Screenshot()
}

func (d *seleniumDriver) Quit() error {
	return d.wd.Quit()
}

type seleniumElement struct {
	el selenium.WebElement
}

func (e *seleniumElement) Click() error {
	return mapSeleniumError(e.el.Click())
}

func (e *seleniumElement) Clear() error {
	return mapSeleniumError(e.el.Clear())
}

func (e *seleniumElement) SendKeys(text string) error {
	return mapSeleniumError(e.el.SendKeys(text))
}

func (e *seleniumElement) Text() (string, error) {
	text, err := e.el.Text()

	return text, mapSeleniumError(err)
}

func (e *seleniumElement) GetAttribute(name string) (string, error) {
	value, err := e.el.GetAttribute(name)

	return value, mapSeleniumError(err)
}

// mapSeleniumError translates W3C error codes into the package sentinels.
func mapSeleniumError(err error) error {
	if err == nil {
		return nil
	}

	code := err.Error()

	var serr *selenium.Error
	if errors.As(err, &serr) {
		code = serr.Err
	}

	switch {
	case strings.Contains(code, "timeout"):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(code, "element not interactable"),
		strings.Contains(code, "element click intercepted"),
		strings.Contains(code, "invalid element state"):
		return fmt.Errorf("%w: %v", ErrNotInteractable, err)
	default:
		return err
	}
}
