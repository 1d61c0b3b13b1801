// Package html provides a Normaliser implementation for HTML documents.
// It extracts readable text from the page's main content, dropping
// scripts, styles and navigation chrome.
package html
