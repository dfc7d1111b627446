/*
Package frametree maintains the cross-process frame tree.

A Coordinator owns every Tree (page) and every Frame in them. Each Frame has
exactly one current Host, the object representing the frame inside the
process that renders it, and one Proxy in every other site group whose
process can reach the frame through parent, child or opener edges. The
coordinator is the only writer; content processes hold eventually consistent
copies driven by the messages in package ipc.

# Navigation

Manager.StartNavigation resolves the target URL to a site group. A
same-group navigation reuses the current host. A cross-group navigation
launches (or reuses) the target group's process and creates a speculative
host there. When that host commits, it becomes current and the old host
enters PendingDeletion: it is sent SwapOut, naming the proxy that replaces it
when its group still needs one, and is deleted on SwapOutAck or after the
unload timeout. Starting another navigation cancels the pending one and
discards its speculative host before any other process learns about it.

Sandbox flags are two-phase. PendingSandbox changes whenever the parent edits
the attribute and always includes the parent's effective flags at that time.
A new child starts with its own attribute plus both flag sets of its parent,
so frames created inside a sandboxed frame are sandboxed too. EffectiveSandbox
is copied from PendingSandbox only when the frame itself commits.

# Proxies

After every structural change the coordinator reconciles proxies for the
connected component the change touched: every site group with a live current
or speculative host in the component gets a proxy of every frame it does not
host, parents before children. Groups that no longer host anything in the
component lose their proxies, and a group whose last reference goes away has
its process terminated. Reconciliation never launches a process.

# Messages from content

Content messages are queued by the Sink methods and applied by Flush or Run on
the coordinator's goroutine. Messages naming routing ids the coordinator no
longer knows are dropped. Messages inconsistent with the coordinator's view,
such as committing into a proxy or detaching a frame the sender neither owns
nor embeds, terminate the sending process.

# Crashes

When a process dies every host in it stops being live, every child of those
frames is destroyed, proxies that lived in the dead process are forgotten, and
proxies of the affected frames elsewhere are kept but marked not live. A later
navigation of the frame, or of any frame into the same site, relaunches the
group's process.
*/
package frametree
