// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// Screens map one-to-one onto client routes:
//  1. [LoginScreen] (/) and [RegisterScreen] (/register) : anonymous-only credential forms
//  2. [SongListScreen] (/songs) : filterable song list with add, edit and delete actions
//  3. [AddScreen] (/add) and [EditScreen] (/edit/:id) : song forms with per-field validation
//  4. [CheckingScreen] : "Checking authentication..." spinner while a protected route revalidates
//  5. [ConfirmDeleteScreen] : y/n confirmation before a delete is dispatched
//
// Every screen change goes through [guard.Router]. A pending decision parks the model on the checking screen and
// resolves in a [tea.Cmd] goroutine. Store failures render as a dismissable banner above the current screen.
//
// Keyboard navigation uses vim-style bindings in the list (j/k, enter, esc, y/n, q) with contextual help
// displayed via charmbracelet/bubbles/help.
package ui
