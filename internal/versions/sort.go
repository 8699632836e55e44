package versions

import (
	"sort"

	"golang.org/x/mod/semver"
)

// Sort orders versions for presentation: store build first, then DevBuild
// channels in enum order, then releases newest-first with an alphabetical
// tie-break. Release numbers that do not parse sort toward the bottom.
func Sort(list []PlayableVersion) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := rank(list[i]), rank(list[j])
		if ri != rj {
			return ri < rj
		}
		a, aok := list[i].(*ReleaseVersion)
		b, bok := list[j].(*ReleaseVersion)
		if aok && bok {
			if c := compareReleases(a.Release, b.Release); c != 0 {
				return c > 0
			}
			return a.Release < b.Release
		}
		di, diok := list[i].(*DevBuildVersion)
		dj, djok := list[j].(*DevBuildVersion)
		if diok && djok {
			return di.Channel < dj.Channel
		}
		return list[i].VersionName() < list[j].VersionName()
	})
}

func rank(v PlayableVersion) int {
	switch v.(type) {
	case *StoreVersion:
		return 0
	case *DevBuildVersion:
		return 1
	default:
		return 2
	}
}

// compareReleases compares two release numbers as semver. An unparseable
// number compares lower than any valid one; two unparseable numbers
// compare equal.
func compareReleases(a, b string) int {
	va, vb := "v"+a, "v"+b
	aok, bok := semver.IsValid(va), semver.IsValid(vb)
	switch {
	case aok && bok:
		return semver.Compare(va, vb)
	case aok:
		return 1
	case bok:
		return -1
	default:
		return 0
	}
}
