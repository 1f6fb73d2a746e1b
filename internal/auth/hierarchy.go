package auth

import "context"

// reachesManager walks the reporting chain upward from the owning user and
// reports whether managerID appears within MaxManagerHops. Users live in a
// flat keyed table; each hop is an id lookup guarded by a visited set, so a
// corrupted (cyclic) graph terminates instead of looping.
func reachesManager(ctx context.Context, resolver ManagerResolver, fromID, managerID int64) (bool, error) {
	visited := map[int64]struct{}{fromID: {}}
	current := fromID
	for hop := 0; hop < MaxManagerHops; hop++ {
		next, err := resolver.ManagerOf(ctx, current)
		if err != nil {
			return false, err
		}
		if next == nil {
			return false, nil
		}
		if *next == managerID {
			return true, nil
		}
		if _, seen := visited[*next]; seen {
			return false, nil
		}
		visited[*next] = struct{}{}
		current = *next
	}
	return false, nil
}

// checkManagerAssignment rejects a manager write that would introduce a cycle:
// assigning managerID to userID is invalid if userID is already on the
// candidate manager's own chain (or if the user would manage itself).
func checkManagerAssignment(ctx context.Context, resolver ManagerResolver, userID, managerID int64) error {
	if userID == managerID {
		return ErrHierarchyCycle
	}
	reachable, err := reachesManager(ctx, resolver, managerID, userID)
	if err != nil {
		return err
	}
	if reachable {
		return ErrHierarchyCycle
	}
	return nil
}
