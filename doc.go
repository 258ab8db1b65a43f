// Package ajaxcrud renders configured database tables as editable HTML
// grids over gin and gorm. Each grid is described by a JSON or YAML file
// (or assembled in code): which columns show, which are editable, how each
// cell is edited, and how foreign keys resolve to display values. Cells
// commit individually through a small plain-text ajax protocol; reads and
// writes pass through pluggable authorization, row scoping and audit
// collaborators.
package ajaxcrud
