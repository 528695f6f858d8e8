package session

import (
	"fmt"
	"io"
)

// Page identifies a navigation target
type Page string

const (
	LoginPage     Page = "login"
	DashboardPage Page = "dash"
)

// Navigator performs the navigation side effects of the session lifecycle
type Navigator interface {
	Navigate(page Page)
}

// NopNavigator ignores navigation
type NopNavigator struct{}

func (NopNavigator) Navigate(Page) {}

// WriterNavigator tells a terminal user which command to run next
type WriterNavigator struct {
	Out     io.Writer
	Program string
}

func (n WriterNavigator) Navigate(page Page) {
	switch page {
	case LoginPage:
		fmt.Fprintf(n.Out, "Not logged in. Run '%s login' to authenticate.\n", n.Program)
	default:
		fmt.Fprintf(n.Out, "Run '%s %s' to continue.\n", n.Program, page)
	}
}
