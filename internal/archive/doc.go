// Package archive packs manifests and file trees into gzip-compressed tar
// archives and unpacks them into staging workspaces.
//
// The first entry of every archive is manifest.json. Each captured root
// follows as a directory tree stored under its absolute path with the
// leading separator stripped, so /etc/openvpn/server.conf is stored as
// etc/openvpn/server.conf.
//
// Archives are immutable once written. A Catalog lists, locates, deletes and
// prunes them; a Workspace unpacks one into a staging directory that the
// caller removes with Close.
package archive
