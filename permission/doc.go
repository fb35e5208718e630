// Package permission owns the fixed role table used by authclient gating decisions.
//
// # Roles
//
// Three canonical roles exist: [RoleAdmin], [RoleTeacher] and [RoleStudent]. Stored user
// records may carry legacy names; the default table maps "ogretmen" to teacher and
// "ogrenci" to student. admin has no aliases.
//
// # Architecture boundaries
//
// This package is a pure in-memory table with no I/O. Session persistence lives in
// session/, gating decisions in guard/.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Import authclient, session, or guard.
//   - Grant access to an unknown role value.
package permission
